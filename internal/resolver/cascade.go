package resolver

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

var ErrNoTierMatched = errors.New("no resolver tier produced an answer")

// Tier is one step of a cascade. It returns ok=false to hand over to the next
// tier. An error is logged and treated the same way.
type Tier[C, A any] struct {
	Name string
	Run  func(ctx context.Context, in C) (A, bool, error)
}

// Cascade evaluates tiers in order and stops at the first answer.
type Cascade[C, A any] struct {
	name   string
	tiers  []Tier[C, A]
	logger *zap.Logger
}

func NewCascade[C, A any](name string, logger *zap.Logger, tiers ...Tier[C, A]) *Cascade[C, A] {
	return &Cascade[C, A]{name: name, tiers: tiers, logger: logger}
}

// Resolve returns the answer and the name of the tier that produced it.
// Falling past the first tier is logged as degraded resolution.
func (c *Cascade[C, A]) Resolve(ctx context.Context, in C) (A, string, error) {
	var zero A
	for i, tier := range c.tiers {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		answer, ok, err := tier.Run(ctx, in)
		if err != nil {
			c.logger.Warn("resolver tier failed",
				zap.String("resolver", c.name),
				zap.String("tier", tier.Name),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}

		if i > 0 {
			c.logger.Warn("resolution degraded",
				zap.String("resolver", c.name),
				zap.String("tier", tier.Name),
			)
		}
		return answer, tier.Name, nil
	}

	return zero, "", ErrNoTierMatched
}

const minUsefulLength = 12

var blocklist = map[string]struct{}{
	"studio":  {},
	"default": {},
	"n/a":     {},
	"na":      {},
	"none":    {},
	"null":    {},
	"unknown": {},
	"white":   {},
	"plain":   {},
}

// IsTrivial reports whether a model answer is too generic to use.
func IsTrivial(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if len(t) < minUsefulLength {
		return true
	}
	t = strings.Trim(t, ".!\"' ")
	_, blocked := blocklist[t]
	return blocked
}
