package testrunner

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refactord/refactord/internal/types"
)

func TestNew_RequiresCommand(t *testing.T) {
	_, err := New(Config{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestParseReport(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		cleanExit bool
		expected  types.TestReport
	}{
		{
			name:      "jest style summary",
			output:    "Tests:       2 failed, 18 passed, 20 total",
			cleanExit: false,
			expected:  types.TestReport{Total: 20, Passed: 18},
		},
		{
			name:      "mocha style summary",
			output:    "  12 passing (340ms)\n  3 failing",
			cleanExit: false,
			expected:  types.TestReport{Total: 15, Passed: 12},
		},
		{
			name:      "all passed",
			output:    "8 passed",
			cleanExit: true,
			expected:  types.TestReport{Total: 8, Passed: 8},
		},
		{
			name:      "no counts with clean exit",
			output:    "ok\n",
			cleanExit: true,
			expected:  types.TestReport{Total: 1, Passed: 1},
		},
		{
			name:      "no counts with failing exit",
			output:    "something broke\n",
			cleanExit: false,
			expected:  types.TestReport{Total: 1, Passed: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseReport(tt.output, tt.cleanExit))
		})
	}
}

func TestCommandRunner_Run(t *testing.T) {
	runner, err := New(Config{Command: []string{"sh", "-c", "echo '5 passed'"}}, zerolog.Nop())
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), types.RefactoringTask{Target: "a.js"})
	require.NoError(t, err)
	assert.Equal(t, types.TestReport{Total: 5, Passed: 5}, report)
}

func TestCommandRunner_FailingSuiteIsNotAnError(t *testing.T) {
	runner, err := New(Config{Command: []string{"sh", "-c", "echo '1 failed'; exit 1"}}, zerolog.Nop())
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), types.RefactoringTask{Target: "a.js"})
	require.NoError(t, err)
	assert.Equal(t, types.TestReport{Total: 1, Passed: 0}, report)
	assert.False(t, report.AllPassed())
}

func TestCommandRunner_LaunchFailure(t *testing.T) {
	runner, err := New(Config{Command: []string{"/nonexistent-test-binary"}}, zerolog.Nop())
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), types.RefactoringTask{Target: "a.js"})
	assert.Error(t, err)
}
