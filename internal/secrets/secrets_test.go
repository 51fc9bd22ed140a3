package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	t.Setenv("DOGBREED_TEST_USER", "admin")
	t.Setenv("DOGBREED_TEST_PASS", "s3cret")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"empty", "", "", false},
		{"literal", "plain-password", "plain-password", false},
		{"literal dollar", "pa$$word$", "pa$$word$", false},
		{"dsn with variables", "postgres://${DOGBREED_TEST_USER}:${DOGBREED_TEST_PASS}@db/dogbreed", "postgres://admin:s3cret@db/dogbreed", false},
		{"fallback unused", "${DOGBREED_TEST_USER:-guest}", "admin", false},
		{"fallback used", "${DOGBREED_TEST_UNSET:-guest}", "guest", false},
		{"empty fallback", "${DOGBREED_TEST_UNSET:-}", "", false},
		{"missing", "prefix-${DOGBREED_TEST_UNSET}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.input)
			if tt.wantErr {
				require.ErrorContains(t, err, "DOGBREED_TEST_UNSET")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, content string, mode os.FileMode) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), mode))
		return path
	}

	got, err := ReadFile(write("plain", "token", 0o400))
	require.NoError(t, err)
	assert.Equal(t, "token", got)

	got, err = ReadFile(write("newline", "  spaced  \r\n\n", 0o600))
	require.NoError(t, err)
	assert.Equal(t, "  spaced  ", got)

	got, err = ReadFile(write("open", "readable", 0o644))
	require.NoError(t, err, "permissive files only warn")
	assert.Equal(t, "readable", got)

	_, err = ReadFile("")
	require.ErrorContains(t, err, "empty")

	_, err = ReadFile(filepath.Join(dir, "missing"))
	require.ErrorContains(t, err, "not found")

	_, err = ReadFile(write("blank", "\n", 0o600))
	require.ErrorContains(t, err, "empty")

	_, err = ReadFile(dir)
	require.ErrorContains(t, err, "not a regular file")

	_, err = ReadFile(write("huge", string(make([]byte, maxFileSize+1)), 0o600))
	require.ErrorContains(t, err, "too large")
}

func TestResolvePrefersFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "password")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

	got, err := Resolve(path, "inline")
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	got, err = Resolve("", "inline")
	require.NoError(t, err)
	assert.Equal(t, "inline", got)

	got, err = Resolve("", "")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Resolve(filepath.Join(t.TempDir(), "nope"), "inline")
	require.Error(t, err)
}
