package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cozy-creator/product-studio/internal/prompt"
	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/xeipuuv/gojsonschema"
)

var ErrUnsupportedWorkflow = errors.New("unsupported workflow")

// Key identifies a workflow as {family}.{purpose}.v{version}.
type Key string

const (
	ApparelCatalog         Key = "apparel.catalog.v1"
	ApparelAds             Key = "apparel.ads.v1"
	ApparelInfographics    Key = "apparel.infographics.v1"
	NonApparelCatalog      Key = "non_apparel.catalog.v1"
	NonApparelAds          Key = "non_apparel.ads.v1"
	NonApparelInfographics Key = "non_apparel.infographics.v1"
)

type ExecutorKind int

const (
	// ExecutorInline runs the job synchronously during admission.
	ExecutorInline ExecutorKind = iota
	// ExecutorMultiStep runs the garment sub-pipeline on a worker.
	ExecutorMultiStep
)

func (k ExecutorKind) String() string {
	if k == ExecutorMultiStep {
		return "multi_step"
	}
	return "inline"
}

// Descriptor is a registered workflow. Descriptors are immutable once the
// registry is built.
type Descriptor struct {
	Key      Key
	Family   types.Family
	Purpose  types.Purpose
	Version  int
	Executor ExecutorKind

	schema *gojsonschema.Schema
}

// SchemaError lists every schema violation of a job input.
type SchemaError struct {
	Key    Key
	Issues []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("input does not match %s schema: %s", e.Key, strings.Join(e.Issues, "; "))
}

// Validate checks a job input against the workflow's input schema.
func (d *Descriptor) Validate(input *types.JobInput) error {
	result, err := d.schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return fmt.Errorf("failed to validate %s input: %w", d.Key, err)
	}

	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, e.String())
	}
	return &SchemaError{Key: d.Key, Issues: issues}
}

// Resolved carries the per-job answers the prompt builder needs beyond the
// job input itself.
type Resolved struct {
	Background    string
	ModelGuidance string
	Attributes    []string
}

// BuildPrompts returns exactly input.Variations prompts.
func (d *Descriptor) BuildPrompts(input *types.JobInput, resolved Resolved) []string {
	segments := prompt.Segments{
		Purpose:       d.Purpose,
		Family:        d.Family,
		StyleAppendix: input.StyleAppendix,
		Background:    resolved.Background,
		ModelGuidance: resolved.ModelGuidance,
		Attributes:    resolved.Attributes,
		Instructions:  input.Instructions,
	}
	return prompt.BuildAll(segments, input.VariationInstructions, input.Variations)
}

func KeyOf(family types.Family, purpose types.Purpose, version int) Key {
	return Key(fmt.Sprintf("%s.%s.v%d", family, purpose, version))
}

// Resolve maps a product category and purpose onto a workflow key. It has no
// side effects and never fails; Lookup reports unsupported keys.
func Resolve(category, purpose string) Key {
	return For(types.FamilyOf(category), types.ParsePurpose(purpose))
}

// For is the exhaustive (family, purpose) table.
func For(family types.Family, purpose types.Purpose) Key {
	switch family {
	case types.FamilyApparel:
		switch purpose {
		case types.PurposeCatalog:
			return ApparelCatalog
		case types.PurposeAds:
			return ApparelAds
		case types.PurposeInfographics:
			return ApparelInfographics
		}
	case types.FamilyNonApparel:
		switch purpose {
		case types.PurposeCatalog:
			return NonApparelCatalog
		case types.PurposeAds:
			return NonApparelAds
		case types.PurposeInfographics:
			return NonApparelInfographics
		}
	}
	return KeyOf(family, purpose, 1)
}

func Lookup(key Key) (*Descriptor, error) {
	d, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedWorkflow, key)
	}
	return d, nil
}

// All returns every registered workflow ordered by key.
func All() []*Descriptor {
	out := make([]*Descriptor, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
