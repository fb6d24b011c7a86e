package file

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
log_level = "debug"

[embedding]
provider = "ollama"
model = "nomic-embed-text"
rate_limit = 2.5
concurrency = 8

[chunking]
chunk_size = 500
overlap = 50

[cache]
store = "redis"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0600))
	return dir
}

func TestNewConfigStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "docmind")

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	store, err := NewConfigStore("")
	require.NoError(t, err)

	want, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(want, "config.toml"), store.Path())
	assert.Equal(t, DefaultDirName, filepath.Base(want))
}

func TestConfigStore_LoadFlattensTables(t *testing.T) {
	store, err := NewConfigStore(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"cache.store",
		"chunking.chunk_size",
		"chunking.overlap",
		"embedding.concurrency",
		"embedding.model",
		"embedding.provider",
		"embedding.rate_limit",
		"log_level",
	}, store.Keys())

	assert.Equal(t, "debug", store.GetString("log_level"))
	assert.Equal(t, "ollama", store.GetString("embedding.provider"))
	assert.Equal(t, 500, store.GetInt("chunking.chunk_size"))
	assert.Equal(t, 50, store.GetInt("chunking.overlap"))
	assert.InDelta(t, 2.5, store.GetFloat("embedding.rate_limit"), 1e-9)
	assert.InDelta(t, 8.0, store.GetFloat("embedding.concurrency"), 1e-9, "integers widen")
}

func TestConfigStore_TypedGettersOnMismatch(t *testing.T) {
	store, err := NewConfigStore(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Empty(t, store.GetString("chunking.chunk_size"))
	assert.Zero(t, store.GetInt("embedding.model"))
	assert.Zero(t, store.GetFloat("embedding.model"))
	assert.Empty(t, store.GetString("missing"))
	assert.Zero(t, store.GetInt("missing"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_SetPersistsAsTables(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("chunking.chunk_size", 256))
	require.NoError(t, store.Set("embedding.provider", "openai"))
	require.NoError(t, store.Set("log_level", "info"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[chunking]")
	assert.Contains(t, string(raw), "[embedding]")

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, 256, reloaded.GetInt("chunking.chunk_size"))
	assert.Equal(t, "openai", reloaded.GetString("embedding.provider"))
	assert.Equal(t, "info", reloaded.GetString("log_level"))
}

func TestNestMap(t *testing.T) {
	got := nestMap(map[string]any{
		"chunking.chunk_size": 10,
		"chunking.overlap":    2,
		"model":               "x",
		"model.extra":         "y",
	})

	assert.Equal(t, map[string]any{"chunk_size": 10, "overlap": 2}, got["chunking"])
	assert.Equal(t, "x", got["model"])
	assert.Equal(t, "y", got["model.extra"], "scalar prefix keeps the dotted key")
}

func TestConfigStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("embedding.api_key", "sk-test"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	store, err := NewConfigStore(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_InvalidTOML(t *testing.T) {
	_, err := NewConfigStore(writeConfig(t, "[chunking\nchunk_size = "))
	assert.Error(t, err)
}

func TestConfigStore_LoadPicksUpEdits(t *testing.T) {
	dir := writeConfig(t, sampleConfig)
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.Path(), []byte("[chunking]\nchunk_size = 42\n"), 0600))
	require.NoError(t, store.Load())

	assert.Equal(t, 42, store.GetInt("chunking.chunk_size"))
	assert.Empty(t, store.GetString("embedding.provider"))
}

func TestConfigStore_LoadAfterRemoval(t *testing.T) {
	store, err := NewConfigStore(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, store.Load())
	assert.Empty(t, store.Keys())
}

func TestConfigStore_SaveFailsOnReadOnlyDir(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("needs unix permissions and a non-root user")
	}
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.Chmod(dir, 0500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0700) })

	assert.Error(t, store.Set("log_level", "debug"))
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("chunking.chunk_size", n+1)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("chunking.chunk_size")
			_ = store.Keys()
		}()
	}
	wg.Wait()

	assert.Positive(t, store.GetInt("chunking.chunk_size"))
}
