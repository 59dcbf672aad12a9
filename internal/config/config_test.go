package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "reorder.db", cfg.Database.Path)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout())
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reorder.cue")
	src := `
database: {
	path:   "/var/lib/reorder/admin.db"
	driver: "sqlite"
}
server: addr: "127.0.0.1:9000"
log: level: "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/reorder/admin.db", cfg.Database.Path)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 30, cfg.Server.Timeout, "omitted fields keep defaults")
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParse_Rejects(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{"unknown driver", `database: driver: "postgres"`},
		{"unknown top-level field", `cache: ttl: 5`},
		{"non-positive timeout", `server: timeout: 0`},
		{"wrong type", `server: addr: 8080`},
		{"unknown log level", `log: level: "trace"`},
		{"syntax error", `database: {`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.src), "bad.cue")
			require.Error(t, err)

			var cfgErr *Error
			require.True(t, errors.As(err, &cfgErr), "got %T", err)
		})
	}
}

func TestError_WithoutPosition(t *testing.T) {
	err := &Error{Message: "log.level: incomplete value"}
	assert.Equal(t, "log.level: incomplete value", err.Error())
}
