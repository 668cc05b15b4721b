// Package suggest models the optional AI-suggestion collaborator as a
// capability interface with a null-object default: code that holds a
// Provider never needs a presence check.
package suggest

import (
	"context"

	"github.com/refactord/refactord/internal/types"
)

// Provider proposes additional refactoring tasks for an analysis result
type Provider interface {
	Suggest(ctx context.Context, analysis *types.AnalysisResult) ([]types.RefactoringTask, error)
}

// NullProvider is the default Provider: it never suggests anything
type NullProvider struct{}

// NewNullProvider returns the no-suggestion provider
func NewNullProvider() *NullProvider {
	return &NullProvider{}
}

// Suggest implements Provider with an empty suggestion list
func (NullProvider) Suggest(context.Context, *types.AnalysisResult) ([]types.RefactoringTask, error) {
	return nil, nil
}

// OrNull returns p, or the null provider when p is nil
func OrNull(p Provider) Provider {
	if p == nil {
		return NullProvider{}
	}
	return p
}
