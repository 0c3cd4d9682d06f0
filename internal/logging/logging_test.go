package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"not-an-email", "***@***"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactEmail(tt.in))
		})
	}
}

func TestRedactEmails(t *testing.T) {
	assert.Equal(t,
		"sent to jo***@example.com and ma***@corp.io",
		RedactEmails("sent to john@example.com and mary@corp.io"),
	)
	assert.Equal(t, "no addresses", RedactEmails("no addresses"))
}

func TestNew_RedactsAttributesAndHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info")

	logger.Debug("hidden", "to", "john@example.com")
	logger.Info("sending", "to", "john@example.com", "error", errors.New("bounce for john@example.com"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "john@example.com")
	assert.Contains(t, out, "jo***@example.com")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
