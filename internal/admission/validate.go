package admission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cozy-creator/product-studio/internal/pipeline"
	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/go-playground/validator/v10"
)

// check runs struct validation plus the limits and reference rules that
// tags cannot express.
func (s *Service) check(req types.GenerationRequest) error {
	var issues []string

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			issues = append(issues, describe(fe))
		}
	}

	if s.limits.MaxBatchSize > 0 && len(req.Variants) > s.limits.MaxBatchSize {
		issues = append(issues, fmt.Sprintf("at most %d variants per request", s.limits.MaxBatchSize))
	}
	if s.limits.MaxVariations > 0 && req.Variations > s.limits.MaxVariations {
		issues = append(issues, fmt.Sprintf("at most %d variations per variant", s.limits.MaxVariations))
	}
	if len(req.VariationInstructions) > req.Variations {
		issues = append(issues, "more variation instructions than variations")
	}

	for _, ref := range s.references(req) {
		if ref.URL != "" && !s.allowed(ref.URL) {
			issues = append(issues, fmt.Sprintf("%s is not an upload-backed reference", ref.URL))
		}
	}

	if len(issues) > 0 {
		return &pipeline.ValidationError{Issues: issues}
	}
	return nil
}

func (s *Service) references(req types.GenerationRequest) []types.AssetRef {
	var refs []types.AssetRef
	for _, v := range req.Variants {
		refs = append(refs, v.ProductImages...)
	}
	if req.ModelImage != nil {
		refs = append(refs, *req.ModelImage)
	}
	if req.BackgroundImage != nil {
		refs = append(refs, *req.BackgroundImage)
	}
	return refs
}

func (s *Service) allowed(url string) bool {
	if len(s.origins) == 0 {
		return true
	}
	for _, origin := range s.origins {
		if strings.HasPrefix(url, origin) {
			return true
		}
	}
	return false
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "GenerationRequest.")
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
