package xmap

import (
	"bufio"
	"fmt"
	"sort"

	"github.com/spf13/afero"
)

// WriteCrossmap joins the learned new→old translations with the reference map
// and writes one "0xUNIVERSAL, 0xNEW," line per translation. Identity
// translations and old hashes absent from the reference are dropped. Returns
// the emitted universal→new map.
func WriteCrossmap(fsys afero.Fs, path string, tm *TranslationMap, ref ReferenceMap) (map[uint64]uint64, error) {
	type line struct {
		universal, newHash uint64
	}
	var lines []line
	generated := make(map[uint64]uint64)
	tm.Each(func(newHash, oldHash uint64) {
		if newHash == oldHash {
			return
		}
		universal, ok := ref[oldHash]
		if !ok {
			return
		}
		lines = append(lines, line{universal: universal, newHash: newHash})
		generated[universal] = newHash
	})
	// ordered by universal hash so runs diff cleanly
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].universal != lines[j].universal {
			return lines[i].universal < lines[j].universal
		}
		return lines[i].newHash < lines[j].newHash
	})

	f, err := fsys.Create(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	for _, l := range lines {
		fmt.Fprintf(w, "0x%016X, 0x%016X,\n", l.universal, l.newHash)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	return generated, nil
}

// Summary holds the totals of one generation run.
type Summary struct {
	Written   int
	Reference int
	Missing   int
	Recovered int
	Wrong     int
	Verified  bool
}

// NewSummary derives the run totals from the emitted crossmap and the
// reference size.
func NewSummary(generated map[uint64]uint64, ref ReferenceMap) Summary {
	return Summary{
		Written:   len(generated),
		Reference: len(ref),
		Missing:   len(ref) - len(generated),
	}
}
