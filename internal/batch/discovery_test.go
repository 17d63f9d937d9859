package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

func TestDiscoverImageFiles(t *testing.T) {
	dir := t.TempDir()
	rootPNG := touch(t, filepath.Join(dir, "a.png"))
	rootJPG := touch(t, filepath.Join(dir, "b.jpg"))
	touch(t, filepath.Join(dir, "notes.txt"))
	subPNG := touch(t, filepath.Join(dir, "sub", "c.png"))
	subSkip := touch(t, filepath.Join(dir, "sub", "skip_me.png"))

	tests := []struct {
		name      string
		args      []string
		recursive bool
		include   []string
		exclude   []string
		want      []string
	}{
		{name: "empty args", args: nil, want: nil},
		{name: "flat dir skips non-images", args: []string{dir}, want: []string{rootPNG, rootJPG}},
		{name: "recursive", args: []string{dir}, recursive: true, want: []string{rootPNG, rootJPG, subPNG, subSkip}},
		{name: "include", args: []string{dir}, recursive: true, include: []string{"*.png"}, want: []string{rootPNG, subPNG, subSkip}},
		{name: "exclude", args: []string{dir}, recursive: true, exclude: []string{"skip_*"}, want: []string{rootPNG, rootJPG, subPNG}},
		{name: "explicit file", args: []string{subPNG}, want: []string{subPNG}},
		{name: "explicit file excluded", args: []string{subSkip}, exclude: []string{"skip_*"}, want: nil},
		{name: "duplicates collapse", args: []string{rootPNG, dir}, want: []string{rootPNG, rootJPG}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := discoverImageFiles(tt.args, tt.recursive, tt.include, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, files)
		})
	}
}

func TestDiscoverImageFiles_MissingPath(t *testing.T) {
	_, err := discoverImageFiles([]string{filepath.Join(t.TempDir(), "nope.png")}, false, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestShouldIncludeFile(t *testing.T) {
	tests := []struct {
		path    string
		include []string
		exclude []string
		want    bool
	}{
		{"/x/a.png", nil, nil, true},
		{"/x/a.png", []string{"*.jpg"}, nil, false},
		{"/x/a.png", []string{"*.jpg", "a.*"}, nil, true},
		{"/x/a.png", nil, []string{"*.png"}, false},
		{"/x/a.png", []string{"*.png"}, []string{"a.png"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shouldIncludeFile(tt.path, tt.include, tt.exclude), "%s %v %v", tt.path, tt.include, tt.exclude)
	}
}

func TestDiscover_NoImages(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "readme.md"))

	_, err := Discover([]string{dir}, DefaultConfig())
	assert.ErrorIs(t, err, ErrNoImages)
}
