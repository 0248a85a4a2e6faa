package style

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cozy-creator/product-studio/internal/db/models"
	"github.com/cozy-creator/product-studio/internal/db/repository"
	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrMoodboardNotFound = errors.New("moodboard not found")

// Enrichment is what a moodboard contributes to one job.
type Enrichment struct {
	Appendix           string
	BackgroundSummary  string
	ModelSummary       string
	StyleReferences    []types.AssetRef
	NegativeReferences []types.AssetRef
}

func (e *Enrichment) Empty() bool {
	return e == nil || (e.Appendix == "" && e.BackgroundSummary == "" && e.ModelSummary == "" &&
		len(e.StyleReferences) == 0 && len(e.NegativeReferences) == 0)
}

type Resolver struct {
	moodboards repository.IMoodboardRepository
	logger     *zap.Logger
}

func NewResolver(moodboards repository.IMoodboardRepository, logger *zap.Logger) *Resolver {
	return &Resolver{moodboards: moodboards, logger: logger}
}

// Snapshot loads a moodboard and freezes it for embedding into jobs. An
// empty id yields a nil snapshot.
func (r *Resolver) Snapshot(ctx context.Context, tenantID, moodboardID string) (*types.MoodboardSnapshot, error) {
	if moodboardID == "" {
		return nil, nil
	}

	id, err := uuid.Parse(moodboardID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMoodboardNotFound, moodboardID)
	}

	board, err := r.moodboards.GetWithAssets(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMoodboardNotFound, moodboardID)
		}
		return nil, fmt.Errorf("failed to load moodboard: %w", err)
	}

	if board.TenantID != tenantID {
		return nil, fmt.Errorf("%w: %s", ErrMoodboardNotFound, moodboardID)
	}

	r.logger.Debug("moodboard snapshot taken",
		zap.String("moodboard_id", moodboardID),
		zap.Int("assets", len(board.Assets)),
	)
	return snapshotOf(board), nil
}

// Resolve is Snapshot followed by Enrich.
func (r *Resolver) Resolve(ctx context.Context, tenantID, moodboardID string, strength types.Strength) (*Enrichment, error) {
	snapshot, err := r.Snapshot(ctx, tenantID, moodboardID)
	if err != nil {
		return nil, err
	}
	return Enrich(snapshot, strength), nil
}

func snapshotOf(board *models.Moodboard) *types.MoodboardSnapshot {
	s := &types.MoodboardSnapshot{
		MoodboardID:       board.ID.String(),
		Name:              board.Name,
		Tone:              board.Tone,
		FontFamily:        board.FontFamily,
		TextCase:          board.TextCase,
		TypographyRules:   board.TypographyRules,
		DoNot:             board.DoNot,
		PositiveSummary:   board.PositiveSummary,
		NegativeSummary:   board.NegativeSummary,
		BackgroundSummary: board.BackgroundSummary,
		ModelSummary:      board.ModelSummary,
	}

	for _, asset := range board.Assets {
		ref := asset.Ref()
		if ref.IsZero() {
			continue
		}

		switch asset.Kind {
		case types.AssetKindBackground:
			s.Backgrounds = append(s.Backgrounds, ref)
		case types.AssetKindModel:
			s.Models = append(s.Models, ref)
		case types.AssetKindPositive:
			s.Positives = append(s.Positives, ref)
		case types.AssetKindNegative:
			s.Negatives = append(s.Negatives, ref)
		}
	}

	return s
}

// Enrich derives a job's style enrichment from a snapshot. A nil snapshot
// gives an empty enrichment. Reference imagery is only attached in strict
// mode.
func Enrich(snapshot *types.MoodboardSnapshot, strength types.Strength) *Enrichment {
	if snapshot == nil {
		return &Enrichment{}
	}

	e := &Enrichment{
		Appendix:          BuildAppendix(snapshot, strength),
		BackgroundSummary: strings.TrimSpace(snapshot.BackgroundSummary),
		ModelSummary:      strings.TrimSpace(snapshot.ModelSummary),
	}

	if strength == types.StrengthStrict {
		e.StyleReferences = append([]types.AssetRef(nil), snapshot.Positives...)
		e.NegativeReferences = append([]types.AssetRef(nil), snapshot.Negatives...)
	}

	return e
}

// BuildAppendix renders the style appendix. Field order is fixed; the
// negative summary is only included in strict mode.
func BuildAppendix(s *types.MoodboardSnapshot, strength types.Strength) string {
	if s == nil {
		return ""
	}

	var lines []string
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			lines = append(lines, label+": "+value)
		}
	}

	add("Tone", s.Tone)
	add("Font family", s.FontFamily)
	add("Text case", s.TextCase)
	add("Typography", joinNonEmpty(s.TypographyRules))
	add("Do not", joinNonEmpty(s.DoNot))
	add("Match the look of the style references", s.PositiveSummary)
	if strength == types.StrengthStrict {
		add("Avoid anything resembling", s.NegativeSummary)
	}

	if len(lines) == 0 {
		return ""
	}
	return "Style guide:\n" + strings.Join(lines, "\n")
}

func joinNonEmpty(items []string) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return strings.Join(out, "; ")
}
