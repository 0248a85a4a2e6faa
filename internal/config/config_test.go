package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshal_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Unmarshal(v)
	require.NoError(t, err)

	assert.Equal(t, 8881, cfg.Port)
	assert.Equal(t, FilesystemLocal, cfg.Filesystem)
	assert.Equal(t, DispatchPool, cfg.Dispatch)
	require.NotNil(t, cfg.Admission)
	assert.Equal(t, 3, cfg.Admission.MaxConcurrentJobs)
	assert.Equal(t, 100, cfg.Admission.MaxBatchSize)
	assert.Equal(t, 10, cfg.Admission.MaxVariations)
	require.NotNil(t, cfg.DB)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
}

func TestUnmarshal_InvalidFilesystem(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("filesystem_type", "ftp")

	_, err := Unmarshal(v)
	assert.ErrorIs(t, err, ErrInvalidFilesystem)
}

func TestUnmarshal_InvalidDispatch(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("dispatch", "carrier-pigeon")

	_, err := Unmarshal(v)
	assert.ErrorIs(t, err, ErrInvalidDispatch)
}
