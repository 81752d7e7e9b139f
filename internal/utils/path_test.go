package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{
			name:      "empty path",
			input:     "",
			wantError: true,
		},
		{
			name:      "relative path",
			input:     "./test",
			wantError: false,
		},
		{
			name:      "absolute path",
			input:     "/tmp/test",
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ResolvePath(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("ResolvePath(%q) error = %v, wantError %v", tt.input, err, tt.wantError)
			}
			if !tt.wantError && result == "" {
				t.Errorf("ResolvePath(%q) returned empty string", tt.input)
			}
		})
	}
}

func TestEnsureParentAndExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a", "b", "manifest.json")

	assert.False(t, DirExists(filepath.Dir(file)))
	require.NoError(t, EnsureParent(file))
	assert.True(t, DirExists(filepath.Dir(file)))
	assert.False(t, FileExists(file))

	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))
	assert.True(t, FileExists(file))
	assert.False(t, FileExists(filepath.Dir(file)), "directories are not files")
	assert.False(t, DirExists(file))

	// idempotent
	require.NoError(t, EnsureDir(filepath.Dir(file)))
}

func TestResolvePath_Home(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("home expansion is tested on unix")
	}
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ResolvePath("~/sites/dist")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "sites", "dist"), got)
}
