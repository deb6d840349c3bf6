package envx

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlayHelpers(t *testing.T) {
	t.Setenv("QS_STR", "value")
	t.Setenv("QS_INT", "42")
	t.Setenv("QS_FLOAT", "2.5")
	t.Setenv("QS_BOOL", "true")
	t.Setenv("QS_DUR", "90s")
	t.Setenv("QS_LIST", "a, b,,c")
	t.Setenv("QS_BAD_INT", "x")

	s := "default"
	n := 1
	f := 1.0
	b := false
	d := time.Second
	l := []string{"z"}
	bad := 7

	String("QS_STR", &s)
	Int("QS_INT", &n)
	Float("QS_FLOAT", &f)
	Bool("QS_BOOL", &b)
	Duration("QS_DUR", &d)
	List("QS_LIST", &l)
	Int("QS_BAD_INT", &bad)

	assert.Equal(t, "value", s)
	assert.Equal(t, 42, n)
	assert.Equal(t, 2.5, f)
	assert.True(t, b)
	assert.Equal(t, 90*time.Second, d)
	assert.Equal(t, []string{"a", "b", "c"}, l)
	assert.Equal(t, 7, bad, "unparsable values keep the previous setting")
}

func TestUnsetKeepsDefault(t *testing.T) {
	s := "default"
	String("QS_DEFINITELY_UNSET", &s)
	assert.Equal(t, "default", s)
}

func TestLoadDotEnv_DoesNotOverrideExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("QS_FROM_FILE=file\nQS_PRESET=file\n"), 0o600))

	t.Setenv("QS_PRESET", "env")
	t.Cleanup(func() { _ = os.Unsetenv("QS_FROM_FILE") })

	LoadDotEnv(path, filepath.Join(dir, "missing.env"))

	assert.Equal(t, "file", os.Getenv("QS_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("QS_PRESET"))
}
