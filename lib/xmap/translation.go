// Package xmap derives native hash translations between two releases of a
// script bundle and joins them with a reference crossmap to produce a
// universal crossmap for the new release.
package xmap

import (
	"github.com/polyhop/xmapgen/lib/container"
)

// ParsedPair is one container parsed from both releases under the same name.
type ParsedPair struct {
	Name string
	Old  *container.Container
	New  *container.Container
}

// Options holds the matcher tuning knobs.
type Options struct {
	// MinPatternSize is the minimum aligned window length accepted by
	// pattern matching. Larger values mean fewer but more accurate matches.
	MinPatternSize int
	// PatternStartOffset is how many calls to back off before the first
	// unmapped hash when anchoring an alignment window. Larger values mean
	// potentially more matches but slower lookup.
	PatternStartOffset int
	// VoteThreshold is the number of per-container votes required before a
	// fallback call-count candidate is accepted.
	VoteThreshold int
}

// DefaultOptions returns the tuning values the matchers were calibrated with.
func DefaultOptions() Options {
	return Options{
		MinPatternSize:     3,
		PatternStartOffset: 10,
		VoteThreshold:      10,
	}
}

type forwardEntry struct {
	old uint64
	// ambiguous marks a new hash that positional matching has seen against
	// more than one old hash. Such entries block re-learning until they are
	// purged, and never produce output.
	ambiguous bool
}

// TranslationMap is a pair of partial maps between the new and old hash
// namespaces. Outside of the ambiguous state it is bijective: fwd[n] == o
// exactly when rev[o] == n.
type TranslationMap struct {
	fwd map[uint64]forwardEntry
	rev map[uint64]uint64
}

// NewTranslationMap returns an empty TranslationMap.
func NewTranslationMap() *TranslationMap {
	return &TranslationMap{
		fwd: make(map[uint64]forwardEntry),
		rev: make(map[uint64]uint64),
	}
}

// Put records the translation newHash→oldHash in both directions. The caller
// is expected to have checked for a conflicting forward entry first.
func (tm *TranslationMap) Put(newHash, oldHash uint64) {
	tm.fwd[newHash] = forwardEntry{old: oldHash}
	tm.rev[oldHash] = newHash
}

// Forward returns the old hash a new hash translates to. Ambiguous entries
// report as absent.
func (tm *TranslationMap) Forward(newHash uint64) (uint64, bool) {
	e, ok := tm.fwd[newHash]
	if !ok || e.ambiguous {
		return 0, false
	}
	return e.old, true
}

// Reverse returns the new hash an old hash translates to.
func (tm *TranslationMap) Reverse(oldHash uint64) (uint64, bool) {
	n, ok := tm.rev[oldHash]
	return n, ok
}

// Has reports whether the new hash has any forward entry, ambiguous included.
func (tm *TranslationMap) Has(newHash uint64) bool {
	_, ok := tm.fwd[newHash]
	return ok
}

// IsAmbiguous reports whether the new hash was demoted by a conflict.
func (tm *TranslationMap) IsAmbiguous(newHash uint64) bool {
	e, ok := tm.fwd[newHash]
	return ok && e.ambiguous
}

// Demote marks a conflicted new hash as ambiguous and drops its reverse
// entry so the old hash becomes matchable again.
func (tm *TranslationMap) Demote(newHash uint64) {
	e, ok := tm.fwd[newHash]
	if !ok || e.ambiguous {
		return
	}
	delete(tm.rev, e.old)
	tm.fwd[newHash] = forwardEntry{ambiguous: true}
}

// PurgeAmbiguous removes every demoted entry and returns how many were
// dropped.
func (tm *TranslationMap) PurgeAmbiguous() int {
	purged := 0
	for n, e := range tm.fwd {
		if e.ambiguous {
			delete(tm.fwd, n)
			purged++
		}
	}
	return purged
}

// Len counts the settled (non-ambiguous) translations.
func (tm *TranslationMap) Len() int {
	return len(tm.rev)
}

// Each calls fn for every settled translation, in unspecified order.
func (tm *TranslationMap) Each(fn func(newHash, oldHash uint64)) {
	for n, e := range tm.fwd {
		if !e.ambiguous {
			fn(n, e.old)
		}
	}
}
