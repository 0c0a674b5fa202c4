package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "1gram", cfg.Index.Method)
	assert.Equal(t, "none", cfg.Index.Compress)
	assert.Equal(t, 5, cfg.Search.Num)
	assert.Equal(t, 3, cfg.Search.SnippetNum)
	assert.Equal(t, 60, cfg.Search.SnippetLen)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	yaml := `
index:
  method: sa8
  path: /tmp/corpus.idx
search:
  num: 20
redis:
  cacheTTL: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("SP_INDEX_COMPRESS", "rc")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sa8", cfg.Index.Method)
	assert.Equal(t, "/tmp/corpus.idx", cfg.Index.Path)
	assert.Equal(t, "rc", cfg.Index.Compress)
	assert.Equal(t, 20, cfg.Search.Num)
	assert.Equal(t, 60, cfg.Search.SnippetLen, "unset fields keep defaults")
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", p.DSN())
}
