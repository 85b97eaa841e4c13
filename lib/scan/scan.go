// Package scan locates the script containers present in both release trees.
package scan

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// containerSuffix is carried by every parseable container file. The file's
// stem (the basename with the suffix and the extension chunk before it
// stripped) also names the directory the container lives in.
const (
	containerSuffix = ".full"
	suffixChunkLen  = 9
	dirSuffix       = "_ysc"
)

// Pair is one container basename found in the old tree together with its
// resolved path on both sides.
type Pair struct {
	Name    string
	OldPath string
	NewPath string
}

// Pairs walks the old tree and returns, in lexical walk order, every
// container that has a counterpart at the matching location under the new
// tree. A container without a new counterpart is skipped silently; walk
// errors abort the scan.
func Pairs(fsys afero.Fs, oldRoot, newRoot string) ([]Pair, error) {
	var pairs []Pair
	seen := make(map[string]bool)
	err := afero.Walk(fsys, oldRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		base := info.Name()
		if info.IsDir() || !strings.HasSuffix(base, containerSuffix) || len(base) <= suffixChunkLen {
			return nil
		}
		if seen[base] {
			return nil
		}
		seen[base] = true
		name := base[:len(base)-suffixChunkLen]
		newPath := filepath.Join(newRoot, name+dirSuffix, base)
		if ok, err := afero.Exists(fsys, newPath); err != nil || !ok {
			return err
		}
		pairs = append(pairs, Pair{
			Name:    name,
			OldPath: filepath.Join(oldRoot, name+dirSuffix, base),
			NewPath: newPath,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}
