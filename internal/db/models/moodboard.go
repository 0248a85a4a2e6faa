package models

import (
	"time"

	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Moodboard struct {
	bun.BaseModel `bun:"table:moodboards,alias:m"`

	ID                uuid.UUID `bun:",pk,type:uuid"`
	TenantID          string    `bun:",notnull"`
	Name              string    `bun:",notnull"`
	Tone              string    `bun:",nullzero"`
	FontFamily        string    `bun:",nullzero"`
	TextCase          string    `bun:",nullzero"`
	TypographyRules   []string  `bun:",type:jsonb"`
	DoNot             []string  `bun:",type:jsonb"`
	PositiveSummary   string    `bun:",nullzero"`
	NegativeSummary   string    `bun:",nullzero"`
	BackgroundSummary string    `bun:",nullzero"`
	ModelSummary      string    `bun:",nullzero"`
	CreatedAt         time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time `bun:",nullzero,notnull,default:current_timestamp"`

	Assets []*MoodboardAsset `bun:"rel:has-many,join:id=moodboard_id"`
}

type MoodboardAsset struct {
	bun.BaseModel `bun:"table:moodboard_assets,alias:ma"`

	ID          uuid.UUID       `bun:",pk,type:uuid"`
	MoodboardID uuid.UUID       `bun:",type:uuid,notnull"`
	Kind        types.AssetKind `bun:",notnull"`
	UploadID    string          `bun:",nullzero"`
	URL         string          `bun:",nullzero"`
	Path        string          `bun:",nullzero"`
	Position    int             `bun:",notnull"`
	CreatedAt   time.Time       `bun:",nullzero,notnull,default:current_timestamp"`
}

func (a *MoodboardAsset) Ref() types.AssetRef {
	return types.AssetRef{UploadID: a.UploadID, URL: a.URL, Path: a.Path}
}
