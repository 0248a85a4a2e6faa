package workflow

import (
	"fmt"

	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/xeipuuv/gojsonschema"
)

var registry = map[Key]*Descriptor{}

func init() {
	for _, family := range types.Families {
		for _, purpose := range types.Purposes {
			executor := ExecutorInline
			if family == types.FamilyApparel && purpose == types.PurposeCatalog {
				executor = ExecutorMultiStep
			}
			register(family, purpose, 1, executor)
		}
	}
}

func register(family types.Family, purpose types.Purpose, version int, executor ExecutorKind) {
	key := For(family, purpose)
	if key != KeyOf(family, purpose, version) {
		panic(fmt.Sprintf("workflow key mismatch: %s vs %s", key, KeyOf(family, purpose, version)))
	}
	if _, dup := registry[key]; dup {
		panic(fmt.Sprintf("workflow %s registered twice", key))
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(inputSchema(family, purpose)))
	if err != nil {
		panic(fmt.Sprintf("invalid input schema for %s: %v", key, err))
	}

	registry[key] = &Descriptor{
		Key:      key,
		Family:   family,
		Purpose:  purpose,
		Version:  version,
		Executor: executor,
		schema:   schema,
	}
}

const assetRefSchema = `{
	"type": "object",
	"properties": {
		"upload_id": {"type": "string", "minLength": 1},
		"url": {"type": "string", "minLength": 1},
		"path": {"type": "string", "minLength": 1}
	},
	"minProperties": 1
}`

func inputSchema(family types.Family, purpose types.Purpose) string {
	maxImages := 4
	return fmt.Sprintf(`{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["tenant_id", "variant_id", "family", "purpose", "product_images", "variations"],
	"properties": {
		"tenant_id": {"type": "string", "minLength": 1},
		"variant_id": {"type": "string", "minLength": 1},
		"family": {"const": %q},
		"purpose": {"const": %q},
		"product_images": {"type": "array", "minItems": 1, "maxItems": %d, "items": %s},
		"model_image": %s,
		"background_image": %s,
		"variations": {"type": "integer", "minimum": 1, "maximum": 10},
		"variation_instructions": {"type": "array", "maxItems": 10, "items": {"type": "string"}},
		"output_format": {"enum": ["png", "jpeg", "webp"]},
		"aspect_ratio": {"type": "string", "pattern": "^[0-9]+:[0-9]+$"},
		"strength": {"enum": ["strict", "inspired"]}
	}
}`, family, purpose, maxImages, assetRefSchema, assetRefSchema, assetRefSchema)
}
