package xmap

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// MatchByFallbackVotes tries to recover old hashes that the other matchers
// missed but the reference crossmap knows about. In every container pair,
// each new native whose call count equals the old hash's call count earns one
// vote, as long as neither side is already translated. A candidate is
// accepted once its tally across all containers reaches opts.VoteThreshold.
// Returns the number of recovered translations.
func MatchByFallbackVotes(
	logger logrus.FieldLogger, pairs []ParsedPair, tm *TranslationMap, ref ReferenceMap, opts Options,
) int {
	votes := make(map[uint64]map[uint64]int)
	for _, p := range pairs {
		newCounts := make(map[uint16]int)
		for _, call := range p.New.Calls {
			newCounts[call.Index]++
		}
		for _, oldHash := range p.Old.NativeTable {
			if _, known := ref[oldHash]; !known {
				continue
			}
			if _, mapped := tm.Reverse(oldHash); mapped {
				continue
			}
			oldCount := p.Old.CallCount(oldHash)
			for idx, count := range newCounts {
				if count != oldCount {
					continue
				}
				newHash := p.New.NativeTable[idx]
				if tm.Has(newHash) {
					continue
				}
				tally := votes[oldHash]
				if tally == nil {
					tally = make(map[uint64]int)
					votes[oldHash] = tally
				}
				tally[newHash]++
			}
		}
	}

	// sorted so reruns accept candidates in the same order
	oldHashes := make([]uint64, 0, len(votes))
	for oldHash := range votes {
		oldHashes = append(oldHashes, oldHash)
	}
	sort.Slice(oldHashes, func(i, j int) bool { return oldHashes[i] < oldHashes[j] })

	recovered := 0
	for _, oldHash := range oldHashes {
		newHash, tally := topCandidate(votes[oldHash])
		if tally < opts.VoteThreshold {
			continue
		}
		if cur, ok := tm.Forward(newHash); ok && cur != oldHash {
			logger.Warnf("found conflict on 0x%016X...", newHash)
			continue
		}
		tm.Put(newHash, oldHash)
		recovered++
	}
	logger.Infof("recovered %d translation(s)", recovered)
	return recovered
}

// topCandidate picks the candidate with the most votes, breaking ties on the
// smaller hash so the result does not depend on map iteration order.
func topCandidate(tally map[uint64]int) (uint64, int) {
	var best uint64
	bestVotes := 0
	for newHash, n := range tally {
		if n > bestVotes || (n == bestVotes && newHash < best) {
			best, bestVotes = newHash, n
		}
	}
	return best, bestVotes
}
