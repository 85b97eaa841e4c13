package xmap

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"

	"github.com/spf13/afero"
)

// hexLiteral matches the hash literals a crossmap line is made of. Anything
// else on the line, trailing commas included, is noise.
var hexLiteral = regexp.MustCompile(`0x[0-9A-Fa-f]+`) //nolint:gochecknoglobals

// ReferenceMap maps old-release native hashes to their universal identifiers.
type ReferenceMap map[uint64]uint64

// LoadReference parses a reference crossmap: one translation per line with
// the universal hash first and the old-release hash second. Lines carrying
// fewer than two hash literals are skipped.
func LoadReference(fsys afero.Fs, path string) (ReferenceMap, error) {
	ref := make(ReferenceMap)
	err := eachHashPair(fsys, path, func(universal, oldHash uint64) {
		ref[oldHash] = universal
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// eachHashPair invokes fn with the first two hash literals of every line of
// the given crossmap file that has at least two.
func eachHashPair(fsys afero.Fs, path string, fn func(first, second uint64)) error {
	f, err := fsys.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		literals := hexLiteral.FindAllString(sc.Text(), 2)
		if len(literals) < 2 {
			continue
		}
		first, err1 := strconv.ParseUint(literals[0][2:], 16, 64)
		second, err2 := strconv.ParseUint(literals[1][2:], 16, 64)
		if err1 != nil || err2 != nil {
			// a literal too wide for 64 bits cannot name a native
			continue
		}
		fn(first, second)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}
