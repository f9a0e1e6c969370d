package middleware

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/result"
)

type piiMiddleware struct {
	next     ports.ResultCache
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that drops the values of answers whose
// identifiers match any of the patterns before they reach the cache. A resumed
// run sees those questions as unanswered.
func NewPIIMiddleware(patternStrings []string) (CacheMiddleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.ResultCache) ports.ResultCache {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Store(ctx context.Context, runID string, r *result.AssessmentResult, expireAt time.Time) error {
	// 1. Deep Clone to avoid side effects on the in-memory result used by the run.
	cloned := r.Clone().(*result.AssessmentResult)

	// 2. Mask PII
	result.Walk(cloned, func(node result.Result) bool {
		if a, ok := node.(*result.AnswerResult); ok && m.matches(a.Identifier) {
			a.Value = nil
		}
		return true
	})

	return m.next.Store(ctx, runID, cloned, expireAt)
}

func (m *piiMiddleware) matches(identifier string) bool {
	for _, p := range m.patterns {
		if p.MatchString(identifier) {
			return true
		}
	}
	return false
}

func (m *piiMiddleware) Load(ctx context.Context, runID string) (*result.AssessmentResult, error) {
	return m.next.Load(ctx, runID)
}

func (m *piiMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) ClearExpired(ctx context.Context) (int, error) {
	return m.next.ClearExpired(ctx)
}
