package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env     string
		level   string
		enabled zapcore.Level
		wantErr bool
	}{
		{env: "local", enabled: zapcore.DebugLevel},
		{env: "prod", enabled: zapcore.InfoLevel},
		{env: "dev", level: "warn", enabled: zapcore.WarnLevel},
		{env: "staging", wantErr: true},
		{env: "local", level: "loud", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.env+"/"+tc.level, func(t *testing.T) {
			l, err := NewLogger(tc.env, tc.level)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tc.enabled))
			assert.False(t, l.Core().Enabled(tc.enabled-1))
		})
	}
}

func TestNewFileLogger_Stacktraces(t *testing.T) {
	tests := []struct {
		env   string
		trace bool
	}{
		{env: "local", trace: false},
		{env: "dev", trace: false},
		{env: "prod", trace: true},
	}
	for _, tc := range tests {
		t.Run(tc.env, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "app.log")
			l, err := NewFileLogger(tc.env, "", path)
			require.NoError(t, err)

			l.Error("boom")
			_ = l.Sync()

			out, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Contains(t, string(out), "boom")
			// Stack frames name the calling function; the caller field only has file:line.
			assert.Equal(t, tc.trace, strings.Contains(string(out), "TestNewFileLogger_Stacktraces"))
		})
	}
}

func TestNewFileLogger_EmptyPath(t *testing.T) {
	_, err := NewFileLogger("local", "", "")
	assert.Error(t, err)
}
