package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewConfigStore_Path(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_CorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("this is not valid TOML {{{[["), 0600))

	store, err := NewConfigStore(dir)
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), nil, 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	_, ok := store.Get("reader.token")
	assert.False(t, ok)
}

func TestConfigStore_NestedFile(t *testing.T) {
	dir := t.TempDir()
	content := `data_dir = "/var/lib/shelfsync"

[reader]
token = "abc"

[vault.garden]
url = "https://garden.example.com"
token = "user:pass"

[scheduler]
sync_interval = "30m"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/shelfsync", store.GetString("data_dir"))
	assert.Equal(t, "abc", store.GetString("reader.token"))
	assert.Equal(t, "https://garden.example.com", store.GetString("vault.garden.url"))
	assert.Equal(t, 30*time.Minute, store.GetDuration("scheduler.sync_interval"))
	assert.Equal(t, []string{"vault.garden.token", "vault.garden.url"}, store.Keys("vault."))
}

func TestConfigStore_SetWritesTables(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("vault.garden.path", "/notes"))
	require.NoError(t, store.Set("reader.token", "abc"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[vault.garden]")
	assert.NotContains(t, string(data), "'vault.garden.path'")

	reloaded, err := NewConfigStore(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Equal(t, "/notes", reloaded.GetString("vault.garden.path"))
	assert.Equal(t, "abc", reloaded.GetString("reader.token"))
}

func TestConfigStore_SetRejectsBadKeys(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("reader.token", "abc"))

	for _, key := range []string{"", ".reader", "reader.", "reader", "reader.token.extra"} {
		assert.Error(t, store.Set(key, "x"), "key %q", key)
	}
}

func TestConfigStore_Conversions(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("n", 42))
	require.NoError(t, store.Set("ns", " 7 "))
	require.NoError(t, store.Set("bad", "not a number"))
	require.NoError(t, store.Set("b", true))
	require.NoError(t, store.Set("bs", "true"))
	require.NoError(t, store.Set("d", "1h30m"))

	assert.Equal(t, 42, store.GetInt("n"))
	assert.Equal(t, "42", store.GetString("n"))
	assert.Equal(t, 7, store.GetInt("ns"))
	assert.Equal(t, 0, store.GetInt("bad"))
	assert.Equal(t, 0, store.GetInt("missing"))

	assert.True(t, store.GetBool("b"))
	assert.True(t, store.GetBool("bs"))
	assert.False(t, store.GetBool("bad"))
	assert.Equal(t, "true", store.GetString("b"))

	assert.Equal(t, 90*time.Minute, store.GetDuration("d"))
	assert.Zero(t, store.GetDuration("bad"))
	assert.Zero(t, store.GetDuration("missing"))
}

func TestConfigStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	first, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set("goodreads.csv_path", "/tmp/export.csv"))
	require.NoError(t, first.Set("readwise.page_size", 500))
	require.NoError(t, first.Set("scheduler.enabled", false))

	second, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/export.csv", second.GetString("goodreads.csv_path"))
	assert.Equal(t, 500, second.GetInt("readwise.page_size"))
	v, ok := second.Get("scheduler.enabled")
	assert.True(t, ok)
	assert.Equal(t, false, v)
}

func TestConfigStore_Unset(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("reader.token", "abc"))
	require.NoError(t, store.Unset("reader.token"))
	require.NoError(t, store.Unset("reader.token"))

	reloaded, err := NewConfigStore(filepath.Dir(store.Path()))
	require.NoError(t, err)
	_, ok := reloaded.Get("reader.token")
	assert.False(t, ok)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("reader.token", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_SaveWriteError(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("reader.token", "abc"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("readwise.token", "def"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := "vault.v" + string(rune('0'+id)) + ".path"
			_ = store.Set(key, "/notes")
			_ = store.GetString(key)
			_ = store.Keys("vault.")
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys("vault."), 10)
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{
		"data_dir":         "/d",
		"vault.garden.url": "u",
		"vault.garden.tok": "t",
	})
	assert.Equal(t, map[string]any{
		"data_dir": "/d",
		"vault": map[string]any{
			"garden": map[string]any{"url": "u", "tok": "t"},
		},
	}, nested)
	assert.Equal(t, map[string]any{
		"data_dir":         "/d",
		"vault.garden.url": "u",
		"vault.garden.tok": "t",
	}, flattenMap(nested, ""))
}
