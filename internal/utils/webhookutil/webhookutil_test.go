package webhookutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ping struct {
	Name string `json:"name"`
}

type pong struct {
	ID string `json:"id"`
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var in ping
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(pong{ID: "evt_" + in.Name})
	}))
	defer srv.Close()

	out, err := PostJSON[ping, pong](context.Background(), nil, srv.URL, map[string]string{"Authorization": "Bearer k"}, ping{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, "evt_a", out.ID)
}

func TestPostJSON_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := PostJSON[ping, pong](context.Background(), srv.Client(), srv.URL, nil, ping{})
	assert.ErrorContains(t, err, "502")
}
