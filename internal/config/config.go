// Package config loads reorder configuration from CUE files.
//
// A configuration file is unified with the embedded #Config schema, so
// unknown fields and out-of-range values are rejected with a file position
// and omitted fields take their schema defaults.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded configuration.
type Config struct {
	Database Database `json:"database"`
	Server   Server   `json:"server"`
	Log      Log      `json:"log"`
}

type Database struct {
	Path   string `json:"path"`
	Driver string `json:"driver"`
}

type Server struct {
	Addr string `json:"addr"`

	// Timeout is in seconds.
	Timeout int `json:"timeout"`
}

type Log struct {
	Level string `json:"level"`
}

// RequestTimeout returns the server timeout as a duration.
func (s Server) RequestTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// SlogLevel maps the configured level name to a slog.Level.
func (l Log) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Error is a configuration error with its CUE source position.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Default returns the configuration of an empty file.
func Default() Config {
	cfg, err := Parse(nil, "default.cue")
	if err != nil {
		panic("config: embedded schema is invalid: " + err.Error())
	}
	return cfg
}

// Load reads and validates the CUE file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates CUE source against #Config and decodes it. filename is
// used in error positions only.
func Parse(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	file := ctx.CompileBytes(data, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, formatCUEError(err)
	}
	return cfg, nil
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}
	first := errs[0]
	e := &Error{Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
