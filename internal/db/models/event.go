package models

import (
	"fmt"
	"time"

	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/vmihailenco/msgpack/v5"
)

type Event struct {
	bun.BaseModel `bun:"table:job_events,alias:e"`

	ID        uuid.UUID       `bun:",pk,type:uuid"`
	Type      types.EventType `bun:",notnull"`
	Data      []byte          `bun:",notnull"`
	JobID     uuid.UUID       `bun:",type:uuid,notnull"`
	CreatedAt time.Time       `bun:",nullzero,notnull,default:current_timestamp"`
}

func NewEvent(jobID uuid.UUID, eventType types.EventType, data interface{}) (*Event, error) {
	encodedData, err := msgpack.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}

	return &Event{
		ID:        uuid.Must(uuid.NewRandom()),
		Type:      eventType,
		Data:      encodedData,
		JobID:     jobID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Decode unpacks the event payload into v.
func (e *Event) Decode(v interface{}) error {
	return msgpack.Unmarshal(e.Data, v)
}
