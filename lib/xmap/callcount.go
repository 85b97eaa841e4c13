package xmap

import (
	"github.com/sirupsen/logrus"
)

// MatchByCallCount performs positional matching over every container pair
// whose two call sequences have the same length. Identical call counts make
// it overwhelmingly likely the call order survived the release, so the j-th
// old call and the j-th new call name the same native. A new hash seen
// against two different old hashes is demoted and purged at the end, so a
// shuffled container cannot poison the later matchers.
func MatchByCallCount(logger logrus.FieldLogger, pairs []ParsedPair, tm *TranslationMap) {
	for i, p := range pairs {
		oldCalls, newCalls := p.Old.Calls, p.New.Calls
		if len(oldCalls) != len(newCalls) || len(oldCalls) == 0 {
			continue
		}
		added := 0
		for j := range oldCalls {
			oldHash := p.Old.NativeTable[oldCalls[j].Index]
			newHash := p.New.NativeTable[newCalls[j].Index]
			switch {
			case !tm.Has(newHash):
				tm.Put(newHash, oldHash)
				added++
			case tm.IsAmbiguous(newHash):
				// already conflicted, leave it for the purge
			default:
				if cur, _ := tm.Forward(newHash); cur != oldHash {
					logger.Warnf("conflict found on 0x%016X, skipping for now...", newHash)
					tm.Demote(newHash)
				}
			}
		}
		logger.Infof("%s - %d (%d/%d) (+%d, total: %d)",
			p.Name, len(oldCalls), i+1, len(pairs), added, tm.Len())
	}
	tm.PurgeAmbiguous()
}
