package scan

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEmpty(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte{}, 0o644))
}

func TestPairs(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeEmpty(t, fs, "/old/intro_ysc/intro.ysc.full")
	writeEmpty(t, fs, "/new/intro_ysc/intro.ysc.full")
	writeEmpty(t, fs, "/old/lonely_ysc/lonely.ysc.full") // no new counterpart
	writeEmpty(t, fs, "/old/readme.txt")                 // not a container

	pairs, err := Pairs(fs, "/old", "/new")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, Pair{
		Name:    "intro",
		OldPath: filepath.Join("/old", "intro_ysc", "intro.ysc.full"),
		NewPath: filepath.Join("/new", "intro_ysc", "intro.ysc.full"),
	}, pairs[0])
}

func TestPairsResolvesCanonicalPaths(t *testing.T) {
	t.Parallel()

	// a container found in a stray location still pairs through its
	// canonical path on both sides
	fs := afero.NewMemMapFs()
	writeEmpty(t, fs, "/old/stray/credits.ysc.full")
	writeEmpty(t, fs, "/new/credits_ysc/credits.ysc.full")

	pairs, err := Pairs(fs, "/old", "/new")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, filepath.Join("/old", "credits_ysc", "credits.ysc.full"), pairs[0].OldPath)
}

func TestPairsSkipsShortNames(t *testing.T) {
	t.Parallel()

	// a basename that is all suffix can't name its directory
	fs := afero.NewMemMapFs()
	writeEmpty(t, fs, "/old/x_ysc/.ysc.full")
	writeEmpty(t, fs, "/new/x_ysc/.ysc.full")

	pairs, err := Pairs(fs, "/old", "/new")
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestPairsDeduplicatesBasenames(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeEmpty(t, fs, "/old/a/intro.ysc.full")
	writeEmpty(t, fs, "/old/b/intro.ysc.full")
	writeEmpty(t, fs, "/new/intro_ysc/intro.ysc.full")

	pairs, err := Pairs(fs, "/old", "/new")
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
}

func TestPairsMissingOldRoot(t *testing.T) {
	t.Parallel()

	_, err := Pairs(afero.NewMemMapFs(), "/nope", "/new")
	require.Error(t, err)
}
