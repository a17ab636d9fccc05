// Package config resolves, parses, validates, and defaults wrapper configuration.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterhoeg/kinit/internal/launch"
	"github.com/tidwall/jsonc"
)

type fileConfig struct {
	SocketPath      *string `json:"socket_path"`
	RuntimeDir      *string `json:"runtime_dir"`
	SocketPrefix    *string `json:"socket_prefix"`
	DisplayEnv      *string `json:"display_env"`
	DisplayRequired *bool   `json:"display_required"`
	StartupIDEnv    *string `json:"startup_id_env"`
	SymlinkMode     *string `json:"symlink_mode"`
	FallbackExec    *bool   `json:"fallback_exec"`
	LogLevel        *string `json:"log_level"`
}

// Parse reads JSONC content over base. Comments and trailing commas are
// accepted; unknown keys are not.
func Parse(content []byte, base Config) (Config, []Warning, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		warnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, warnings, nil
	}

	// ToJSON blanks comments in place, so offsets still point into content.
	normalized := jsonc.ToJSON(content)

	decoder := json.NewDecoder(bytes.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validated, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validated...), nil
}

func (payload fileConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.SocketPath != nil {
		cfg.Socket.Path = strings.TrimSpace(*payload.SocketPath)
	}
	if payload.RuntimeDir != nil {
		cfg.Socket.RuntimeDir = strings.TrimSpace(*payload.RuntimeDir)
	}
	if payload.SocketPrefix != nil {
		cfg.Socket.Prefix = *payload.SocketPrefix
	}
	if payload.DisplayEnv != nil {
		cfg.Socket.DisplayEnv = strings.TrimSpace(*payload.DisplayEnv)
	}
	if payload.DisplayRequired != nil {
		cfg.Socket.DisplayRequired = *payload.DisplayRequired
	}
	if payload.StartupIDEnv != nil {
		cfg.StartupIDEnv = strings.TrimSpace(*payload.StartupIDEnv)
	}
	if payload.SymlinkMode != nil {
		mode, err := launch.ParseMode(strings.TrimSpace(*payload.SymlinkMode))
		if err != nil {
			return nil, fmt.Errorf("invalid symlink_mode: %w", err)
		}
		cfg.SymlinkMode = mode
	}
	if payload.FallbackExec != nil {
		cfg.FallbackExec = *payload.FallbackExec
	}
	if payload.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*payload.LogLevel))
	}

	if cfg.Socket.Path != "" && payload.RuntimeDir != nil {
		warnings = append(warnings, Warning{Message: "runtime_dir is ignored when socket_path is set"})
	}

	return warnings, nil
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content []byte, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content []byte, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := min(int(offset), len(content))

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
