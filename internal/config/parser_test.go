package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/peterhoeg/kinit/internal/launch"
	"github.com/stretchr/testify/require"
)

func TestParseEmptyContentReturnsBase(t *testing.T) {
	cfg, warnings, err := Parse([]byte("  \n"), Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Empty(t, warnings)
}

func TestParseOverridesOnlyPresentKeys(t *testing.T) {
	content := `{
  "runtime_dir": "/run/user/42",
  "socket_prefix": "kdeinit6_",
  "display_env": "WAYLAND_DISPLAY",
  "display_required": false,
  "startup_id_env": "XDG_ACTIVATION_TOKEN",
  "log_level": " DEBUG ",
}`

	cfg, warnings, err := Parse([]byte(content), Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, SocketConfig{
		RuntimeDir:      "/run/user/42",
		Prefix:          "kdeinit6_",
		DisplayEnv:      "WAYLAND_DISPLAY",
		DisplayRequired: false,
	}, cfg.Socket)
	require.Equal(t, "XDG_ACTIVATION_TOKEN", cfg.StartupIDEnv)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, launch.ModeDetach, cfg.SymlinkMode)
	require.True(t, cfg.FallbackExec)
}

func TestParseKeepsCommentLikeTextInsideStrings(t *testing.T) {
	content := `{"socket_prefix": "a//b/*c*/"}`
	_, _, err := Parse([]byte(content), Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "socket_prefix must not contain")
}

func TestParseWarnsWhenRuntimeDirIsShadowed(t *testing.T) {
	content := `{"socket_path": "/tmp/k.sock", "runtime_dir": "/run/user/1"}`
	cfg, warnings, err := Parse([]byte(content), Default())
	require.NoError(t, err)
	require.Equal(t, "/tmp/k.sock", cfg.Socket.Path)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "runtime_dir is ignored")
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "unknown key", content: `{"sokcet_path": "/tmp/x"}`, wantErr: "unknown field"},
		{name: "wrong type", content: "{\n  \"fallback_exec\": \"yes\"\n}", wantErr: "line 2"},
		{name: "bad symlink mode", content: `{"symlink_mode": "fork"}`, wantErr: "invalid symlink_mode"},
		{name: "bad log level", content: `{"log_level": "trace"}`, wantErr: "log_level"},
		{name: "relative socket path", content: `{"socket_path": "kdeinit5__0"}`, wantErr: "socket_path must be absolute"},
		{name: "multiple values", content: `{} {}`, wantErr: "multiple JSON values"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse([]byte(tc.content), Default())
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestEnsureSingleJSONValueRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))

	err := ensureSingleJSONValue(decoder)
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestOffsetToLineCol(t *testing.T) {
	content := []byte("line1\nline2\nline3")
	line, col := offsetToLineCol(content, 1)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = offsetToLineCol(content, 8)
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)
}
