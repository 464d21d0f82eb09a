package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, c Cache) {
	t.Helper()

	_, ok := c.Get("ibuprofeno")
	assert.False(t, ok)

	require.NoError(t, c.Put("ibuprofeno", "M01AE01"))
	require.NoError(t, c.Put("paracetamol", "N02BE01"))
	require.NoError(t, c.Put("ibuprofeno", "M01AE01, M02AA13"))

	v, ok := c.Get("ibuprofeno")
	assert.True(t, ok)
	assert.Equal(t, "M01AE01, M02AA13", v)
	assert.Equal(t, []string{"ibuprofeno", "paracetamol"}, c.Keys())
}

func TestJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "atc.json")
	c, err := OpenJSON(path)
	require.NoError(t, err)
	exercise(t, c)
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"ibuprofeno\": ")

	reopened, err := OpenJSON(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Len())
	v, _ := reopened.Get("paracetamol")
	assert.Equal(t, "N02BE01", v)
}

func TestJSONFileKeepsNonASCII(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	c, err := OpenJSON(path)
	require.NoError(t, err)
	require.NoError(t, c.Put("ácido <acetilsalicílico>", "B01AC06"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ácido <acetilsalicílico>")
}

func TestJSONFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	require.NoError(t, os.WriteFile(path, []byte("[1, 2]"), 0644))
	_, err := OpenJSON(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0644))
	c, err := OpenJSON(path)
	require.NoError(t, err)
	assert.Empty(t, c.Keys())
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atc.db")
	c, err := OpenSQLite(path)
	require.NoError(t, err)
	exercise(t, c)
	require.NoError(t, c.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()
	v, ok := reopened.Get("paracetamol")
	assert.True(t, ok)
	assert.Equal(t, "N02BE01", v)
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()

	c, err := Open("", filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.IsType(t, &JSONFile{}, c)
	require.NoError(t, c.Close())

	c, err = Open("", filepath.Join(dir, "a.sqlite"))
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, c)
	require.NoError(t, c.Close())

	c, err = Open("SQLite", filepath.Join(dir, "b.cache"))
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, c)
	require.NoError(t, c.Close())

	_, err = Open("redis", filepath.Join(dir, "c"))
	assert.Error(t, err)
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}
