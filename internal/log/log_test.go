package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected log.Level
	}{
		{"debug", log.DebugLevel},
		{"TRACE", log.DebugLevel},
		{"info", log.InfoLevel},
		{" warn ", log.WarnLevel},
		{"fatal", log.FatalLevel},
		{"", log.ErrorLevel},
		{"bogus", log.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	Init("info", &buf)
	t.Cleanup(func() { Init("error", nil) })

	Debugf("hidden %d", 1)
	WithFields(log.Fields{"b": 2, "a": 1}).Info("loaded")
	WithError(errors.New("boom")).Warn("retry")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, " I loaded a=1 b=2\n")
	assert.Contains(t, out, " W retry error=boom\n")
}

func TestLeveledAdapter(t *testing.T) {
	var buf bytes.Buffer
	Init("debug", &buf)
	t.Cleanup(func() { Init("error", nil) })

	Leveled{}.Debug("performing request", "method", "POST", "url", "http://x")
	Leveled{}.Warn("odd", "dangling")

	out := buf.String()
	assert.Contains(t, out, " D performing request method=POST url=http://x\n")
	assert.Contains(t, out, " W odd\n")
}
