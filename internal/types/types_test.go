package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalysisResult_HasBreakingChanges(t *testing.T) {
	tests := []struct {
		name   string
		result AnalysisResult
		want   bool
	}{
		{
			name:   "empty result",
			result: AnalysisResult{OverallImpact: ImpactPatch},
			want:   false,
		},
		{
			name:   "breaking overall impact",
			result: AnalysisResult{OverallImpact: ImpactBreaking},
			want:   true,
		},
		{
			name: "flagged file under minor impact",
			result: AnalysisResult{
				OverallImpact: ImpactMinor,
				Changes: []FileChange{
					{Path: "a.js", Kind: ChangeModified},
					{Path: "api.js", Kind: ChangeDeleted, Breaking: true},
				},
			},
			want: true,
		},
		{
			name: "major impact without flags",
			result: AnalysisResult{
				OverallImpact: ImpactMajor,
				Changes:       []FileChange{{Path: "a.js", Kind: ChangeModified}},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.HasBreakingChanges())
		})
	}
}

func TestPriority_Rank(t *testing.T) {
	assert.Equal(t, 3, PriorityHigh.Rank())
	assert.Equal(t, 2, PriorityMedium.Rank())
	assert.Equal(t, 1, PriorityLow.Rank())
	assert.Equal(t, 0, Priority("unknown").Rank())

	assert.Greater(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Greater(t, PriorityMedium.Rank(), PriorityLow.Rank())
}

func TestTestReport_AllPassed(t *testing.T) {
	assert.True(t, TestReport{Total: 5, Passed: 5}.AllPassed())
	assert.False(t, TestReport{Total: 5, Passed: 4}.AllPassed())
	// An empty run rejects nothing
	assert.True(t, TestReport{}.AllPassed())
}
