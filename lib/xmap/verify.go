package xmap

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// VerifyCrossmap compares the generated universal→new map against an expected
// crossmap and returns the number of disagreements. Universal hashes the run
// did not produce are not counted here; those show up as missing in the run
// summary.
func VerifyCrossmap(
	fsys afero.Fs, path string, logger logrus.FieldLogger, generated map[uint64]uint64,
) (int, error) {
	wrong := 0
	err := eachHashPair(fsys, path, func(universal, expected uint64) {
		got, ok := generated[universal]
		if !ok || got == expected {
			return
		}
		logger.Warnf("found wrong result on 0x%016X :( (got: 0x%016X, expected: 0x%016X)",
			universal, got, expected)
		wrong++
	})
	if err != nil {
		return 0, err
	}
	return wrong, nil
}
