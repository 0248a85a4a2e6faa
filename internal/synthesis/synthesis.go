package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/cozy-creator/product-studio/internal/services/filestorage"
	"github.com/cozy-creator/product-studio/internal/types"
	"github.com/cozy-creator/product-studio/internal/utils/imageutil"
	"github.com/cozy-creator/product-studio/internal/utils/pathutil"

	"go.uber.org/zap"
)

const (
	MinVariations = 1
	MaxVariations = 10
)

const (
	StageSynthesize = "synthesize"
	StageStore      = "store"
)

type Synthesizer interface {
	Synthesize(ctx context.Context, prompt string, images []types.Image, aspectRatio string) (types.Image, error)
}

// Plan is everything one job's loop needs. Prompts holds one prompt per
// variation.
type Plan struct {
	TenantID  string
	VariantID string
	JobID     string

	Prompts     []string
	Count       int
	AspectRatio string
	Format      types.OutputFormat

	// UseAnchor feeds the first output back as a reference for every later
	// variation.
	UseAnchor bool

	ModelReference     *types.Image
	ProductImages      []types.Image
	StyleReferences    []types.Image
	NegativeReferences []types.Image

	// OnOutput is called after each variation is stored. An error stops the
	// loop.
	OnOutput func(ctx context.Context, out Output) error
}

type Output struct {
	Index    int
	URL      string
	Path     string
	Prompt   string
	MIMEType string
}

type Result struct {
	Outputs []Output
}

// VariationError reports which variation and stage failed. Outputs produced
// before it are still in the Result.
type VariationError struct {
	Index int
	Stage string
	Err   error
}

func (e *VariationError) Error() string {
	return fmt.Sprintf("variation %d failed at %s: %v", e.Index, e.Stage, e.Err)
}

func (e *VariationError) Unwrap() error {
	return e.Err
}

type Loop struct {
	synth   Synthesizer
	storage filestorage.FileStorage
	logger  *zap.Logger
}

func NewLoop(synth Synthesizer, storage filestorage.FileStorage, logger *zap.Logger) *Loop {
	return &Loop{synth: synth, storage: storage, logger: logger}
}

func Clamp(n int) int {
	return max(MinVariations, min(n, MaxVariations))
}

// Run generates variations one at a time. It stops at the first failure and
// returns the outputs produced so far together with a *VariationError.
func (l *Loop) Run(ctx context.Context, plan Plan) (*Result, error) {
	count := Clamp(plan.Count)
	if len(plan.Prompts) == 0 {
		return &Result{}, &VariationError{Index: 1, Stage: StageSynthesize, Err: fmt.Errorf("no prompts")}
	}

	result := &Result{Outputs: make([]Output, 0, count)}

	var anchor *types.Image
	for i := 1; i <= count; i++ {
		prompt := plan.Prompts[min(i, len(plan.Prompts))-1]

		groups := References(plan, anchor)
		img, err := l.synth.Synthesize(ctx, WithLegend(prompt, groups), Flatten(groups), plan.AspectRatio)
		if err != nil {
			return result, &VariationError{Index: i, Stage: StageSynthesize, Err: err}
		}

		if plan.UseAnchor && anchor == nil {
			a := img
			anchor = &a
		}

		out, err := l.store(ctx, plan, i, prompt, img)
		if err != nil {
			return result, &VariationError{Index: i, Stage: StageStore, Err: err}
		}

		if plan.OnOutput != nil {
			if err := plan.OnOutput(ctx, out); err != nil {
				return result, &VariationError{Index: i, Stage: StageStore, Err: err}
			}
		}

		result.Outputs = append(result.Outputs, out)
		l.logger.Debug("variation stored",
			zap.String("job_id", plan.JobID),
			zap.Int("index", i),
			zap.String("path", out.Path),
		)
	}

	return result, nil
}

// Role says what a group of reference images is for.
type Role string

const (
	RoleAnchor  Role = "anchor"
	RoleModel   Role = "model"
	RoleProduct Role = "product"
	RoleStyle   Role = "style"
	RoleAvoid   Role = "avoid"
)

var roleLegend = map[Role]string{
	RoleAnchor:  "an earlier shot from this set. Match its lighting, camera angle and colour grade. It is not a second product.",
	RoleModel:   "the model. Keep this person's face, build and skin tone.",
	RoleProduct: "the product. The product fidelity rules apply to these images only.",
	RoleStyle:   "style reference. Take mood, lighting and palette from it only. Do not copy its subject or its products.",
	RoleAvoid:   "avoid. Negative reference: nothing in the result may resemble it. It is not the product and must not be reproduced.",
}

type ReferenceGroup struct {
	Role   Role
	Images []types.Image
}

// References groups the images for one call in a fixed order: anchor,
// model reference, product images, style references, negative references.
// Empty groups are left out.
func References(plan Plan, anchor *types.Image) []ReferenceGroup {
	var groups []ReferenceGroup
	add := func(role Role, images ...types.Image) {
		if len(images) > 0 {
			groups = append(groups, ReferenceGroup{Role: role, Images: images})
		}
	}

	if anchor != nil {
		add(RoleAnchor, *anchor)
	}
	if plan.ModelReference != nil {
		add(RoleModel, *plan.ModelReference)
	}
	add(RoleProduct, plan.ProductImages...)
	add(RoleStyle, plan.StyleReferences...)
	add(RoleAvoid, plan.NegativeReferences...)
	return groups
}

// Flatten returns the images of every group in order.
func Flatten(groups []ReferenceGroup) []types.Image {
	var images []types.Image
	for _, g := range groups {
		images = append(images, g.Images...)
	}
	return images
}

// Legend tells the model which attached image plays which role, by position.
func Legend(groups []ReferenceGroup) string {
	if len(groups) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Reference images, in the order attached:")
	next := 1
	for _, g := range groups {
		first, last := next, next+len(g.Images)-1
		next = last + 1

		if first == last {
			fmt.Fprintf(&b, "\n- Image %d: %s", first, roleLegend[g.Role])
		} else {
			fmt.Fprintf(&b, "\n- Images %d-%d: %s", first, last, roleLegend[g.Role])
		}
	}
	return b.String()
}

// WithLegend puts the image legend in front of the prompt.
func WithLegend(prompt string, groups []ReferenceGroup) string {
	legend := Legend(groups)
	if legend == "" {
		return prompt
	}
	return legend + "\n\n" + prompt
}

// OutputPath is the object key of one variation.
func OutputPath(tenantID, variantID, jobID string, index int, format types.OutputFormat) string {
	return pathutil.ObjectKey(
		"tenants", tenantID,
		"variants", variantID,
		"jobs", jobID,
		fmt.Sprintf("variation-%d%s", index, imageutil.Extension(format)),
	)
}

func (l *Loop) store(ctx context.Context, plan Plan, index int, prompt string, img types.Image) (Output, error) {
	converted, err := imageutil.Convert(img, plan.Format)
	if err != nil {
		return Output{}, fmt.Errorf("failed to convert output: %w", err)
	}

	path := OutputPath(plan.TenantID, plan.VariantID, plan.JobID, index, plan.Format)
	url, err := l.storage.Upload(ctx, filestorage.FileInfo{
		Path:        path,
		Content:     converted.Data,
		ContentType: converted.MIMEType,
	})
	if err != nil {
		return Output{}, err
	}

	return Output{Index: index, URL: url, Path: path, Prompt: prompt, MIMEType: converted.MIMEType}, nil
}
