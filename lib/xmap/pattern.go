package xmap

import (
	"github.com/sirupsen/logrus"

	"github.com/polyhop/xmapgen/lib/container"
)

// knownBadHash keeps showing up mistranslated when checked against external
// crossmaps. It gets no special treatment beyond a log line; see the warning
// emitted when it is learned.
const knownBadHash = 0x6A973569BA094650

// MatchByPattern aligns the not-yet-translated regions of a container's old
// call sequence against its new call sequence. The inter-call byte deltas are
// a structural fingerprint of the surrounding control flow; augmented with
// already-known hash anchors they identify procedures across releases. The
// window is walked from the start of the old sequence, backing off
// opts.PatternStartOffset calls before each gap so known anchors sharpen the
// alignment.
func MatchByPattern(logger logrus.FieldLogger, p ParsedPair, tm *TranslationMap, opts Options) {
	oldCalls := p.Old.Calls
	offset := 0
	for offset < len(oldCalls) {
		gap := firstUnmapped(p, tm, offset)
		if gap < 0 {
			if offset == 0 {
				logger.Infof("%s: fully translated", p.Name)
			}
			return
		}
		if gap >= opts.PatternStartOffset {
			offset += gap - opts.PatternStartOffset
		}
		if start, end, ok := generatePattern(p, offset, tm); ok && end-start >= opts.MinPatternSize {
			added := 0
			for j := start; j < end; j++ {
				oldHash := p.Old.NativeTable[oldCalls[offset+j-start].Index]
				newHash := p.New.NativeTable[p.New.Calls[j].Index]
				if !tm.Has(newHash) {
					if newHash == knownBadHash {
						logger.Warnf("recording suspect hash 0x%016X", uint64(knownBadHash))
					}
					tm.Put(newHash, oldHash)
					added++
				} else if cur, known := tm.Forward(newHash); known && cur != oldHash {
					logger.Warnf("%s: WARNING: inconsistent result for 0x%016X...", p.Name, newHash)
				}
			}
			if added > 0 {
				logger.Infof("%s (%d%%): [%d:%d] at %d (%d elements) (+%d, total: %d)",
					p.Name, (offset+end-start)*100/len(oldCalls),
					offset, offset+end-start, start, end-start, added, tm.Len())
			}
		}
		offset++
	}
}

// firstUnmapped returns the distance from offset to the first old call whose
// hash has no reverse translation yet, or -1 if the tail is fully mapped.
func firstUnmapped(p ParsedPair, tm *TranslationMap, offset int) int {
	for i := 0; offset+i < len(p.Old.Calls); i++ {
		hash := p.Old.NativeTable[p.Old.Calls[offset+i].Index]
		if _, ok := tm.Reverse(hash); !ok {
			return i
		}
	}
	return -1
}

// generatePattern grows a candidate window at every starting position of the
// new call sequence, extending while the byte deltas agree and any known
// anchor hashes resolve consistently, and keeps the widest one. The window is
// trusted only if its delta fingerprint pins down exactly one spot in the old
// stream; a repeated fingerprint means the alignment is ambiguous and would
// corrupt the map.
func generatePattern(p ParsedPair, offset int, tm *TranslationMap) (start, end int, ok bool) {
	oldCalls, newCalls := p.Old.Calls, p.New.Calls
	if offset < 0 || offset >= len(oldCalls) {
		return 0, 0, false
	}
	bestLen := 0
	for i := range newCalls {
		for j := 0; j < len(oldCalls)-offset; j++ {
			if i+j >= len(newCalls) {
				break
			}
			if newCalls[i+j].Delta != oldCalls[offset+j].Delta {
				break
			}
			oldHash := p.Old.NativeTable[oldCalls[offset+j].Index]
			if anchor, known := tm.Reverse(oldHash); known {
				if p.New.NativeTable[newCalls[i+j].Index] != anchor {
					break
				}
			}
			if j+1 > bestLen {
				start, end, bestLen = i, i+j+1, j+1
			}
		}
	}
	if bestLen == 0 {
		return 0, 0, false
	}
	if !deltasUniqueInOld(oldCalls, offset, bestLen) {
		return 0, 0, false
	}
	return start, end, true
}

// deltasUniqueInOld reports whether the delta sequence of
// calls[offset:offset+length] occurs exactly once in the whole old stream.
func deltasUniqueInOld(calls []container.Call, offset, length int) bool {
	matches := 0
	for i := 0; i+length <= len(calls); i++ {
		hit := true
		for j := 0; j < length; j++ {
			if calls[i+j].Delta != calls[offset+j].Delta {
				hit = false
				break
			}
		}
		if hit {
			matches++
			if matches > 1 {
				return false
			}
		}
	}
	return matches == 1
}
