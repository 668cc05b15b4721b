package notify

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLogNotifier_WritesToLog(t *testing.T) {
	var buf bytes.Buffer
	notifier := NewLogNotifier(zerolog.New(&buf))

	notifier.Notify("Breaking changes", "2 breaking change(s) detected")

	output := buf.String()
	assert.Contains(t, output, "Breaking changes")
	assert.Contains(t, output, "2 breaking change(s) detected")
}
