// Package tpqueue implements the transponder queue: to-scan (FIFO with
// push-front and update-in-place), scanned, and unavailable lists, plus
// dedup against the currently-tuned transponder.
package tpqueue

import "github.com/plextuner/dvbscan/internal/tuning"

// Queue holds the three transponder lists a scan walks as it works: the
// to-scan queue, and the scanned/unavailable lists it drains into.
type Queue struct {
	toScan      []tuning.Params
	scanned     []tuning.Params
	unavailable []tuning.Params

	// current is the transponder presently being tuned/filtered, if any.
	// AddToScan never re-queues a duplicate of it.
	current    tuning.Params
	hasCurrent bool
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Reset clears all three lists and the current-transponder marker. Called
// at the start of every scan.
func (q *Queue) Reset() {
	q.toScan = nil
	q.scanned = nil
	q.unavailable = nil
	q.hasCurrent = false
}

// SetCurrent records the transponder currently being tuned, so AddToScan can
// avoid re-queuing it as a duplicate of itself.
func (q *Queue) SetCurrent(p tuning.Params) {
	q.current = p
	q.hasCurrent = true
}

// ClearCurrent forgets the current-transponder marker.
func (q *Queue) ClearCurrent() {
	q.hasCurrent = false
}

// ToScan returns a snapshot of the to-scan list, front first.
func (q *Queue) ToScan() []tuning.Params { return append([]tuning.Params(nil), q.toScan...) }

// Scanned returns a snapshot of the scanned list.
func (q *Queue) Scanned() []tuning.Params { return append([]tuning.Params(nil), q.scanned...) }

// Unavailable returns a snapshot of the unavailable list.
func (q *Queue) Unavailable() []tuning.Params { return append([]tuning.Params(nil), q.unavailable...) }

// Len returns the length of the to-scan list.
func (q *Queue) Len() int { return len(q.toScan) }

// SnapshotToScan returns the to-scan list and clears it, for use by the NIT
// processor's clearToScanOnFirstNIT handling.
func (q *Queue) SnapshotToScan() []tuning.Params {
	snap := q.toScan
	q.toScan = nil
	return snap
}

// RestoreToScan replaces the to-scan list wholesale, used to undo a
// SnapshotToScan when the NIT turned out to carry nothing useful.
func (q *Queue) RestoreToScan(snap []tuning.Params) {
	q.toScan = snap
}

// AddToScan inserts params into the to-scan queue with full dedup semantics:
//
//  1. Search to-scan for the first match by Same(exact=false); overwrite it
//     in place. Remove any further matches (collapsing duplicates).
//  2. If no match in to-scan, search scanned, then unavailable (exact=true
//     for the latter); if found in either, skip entirely.
//  3. Otherwise, if distinct from the transponder currently being tuned,
//     insert params at the front of to-scan.
//
// Returns true if params was inserted or updated an existing entry.
func (q *Queue) AddToScan(params tuning.Params) bool {
	matchIdx := -1
	for i, existing := range q.toScan {
		if existing.Same(params, false) {
			if matchIdx == -1 {
				matchIdx = i
			}
		}
	}
	if matchIdx != -1 {
		q.toScan[matchIdx] = params
		q.dedupeToScanAfter(matchIdx, params)
		return true
	}

	for _, s := range q.scanned {
		if s.Same(params, false) {
			return false
		}
	}
	for _, u := range q.unavailable {
		if u.Same(params, true) {
			return false
		}
	}

	if q.hasCurrent && q.current.Same(params, false) {
		return false
	}

	q.toScan = append([]tuning.Params{params}, q.toScan...)
	return true
}

// dedupeToScanAfter removes every entry past keepIdx that now duplicates
// params, implementing the "remove subsequent matches" half of AddToScan.
func (q *Queue) dedupeToScanAfter(keepIdx int, params tuning.Params) {
	out := q.toScan[:keepIdx+1]
	for i := keepIdx + 1; i < len(q.toScan); i++ {
		if q.toScan[i].Same(params, false) {
			continue
		}
		out = append(out, q.toScan[i])
	}
	q.toScan = out
}

// PopNext removes and returns the front of the to-scan list. ok is false
// when the queue is empty (the "scan finished" terminal event).
func (q *Queue) PopNext() (params tuning.Params, ok bool) {
	if len(q.toScan) == 0 {
		return tuning.Params{}, false
	}
	params = q.toScan[0]
	q.toScan = q.toScan[1:]
	return params, true
}

// Seed populates to-scan from a caller-supplied transponder list, in order,
// deduplicating with Same(exact=true) — a tighter comparison than AddToScan
// uses for NIT-discovered transponders, since an initial transponder list is
// expected to already agree on coding parameters for anything that's really
// the same transponder. Call after Reset.
func (q *Queue) Seed(initial []tuning.Params) {
	for _, p := range initial {
		duplicate := false
		for _, existing := range q.toScan {
			if existing.Same(p, true) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			q.toScan = append(q.toScan, p)
		}
	}
}

// PushFront inserts params at the front of to-scan unconditionally, used to
// seed the queue without running the dedup search (e.g. populating from an
// input transponder list, which the caller has already deduplicated).
func (q *Queue) PushFront(params tuning.Params) {
	q.toScan = append([]tuning.Params{params}, q.toScan...)
}

// MarkScanned appends params to the scanned list.
func (q *Queue) MarkScanned(params tuning.Params) {
	q.scanned = append(q.scanned, params)
}

// MarkUnavailable appends params to the unavailable list.
func (q *Queue) MarkUnavailable(params tuning.Params) {
	q.unavailable = append(q.unavailable, params)
}

// NoDuplicates reports whether the to-scan list satisfies testable property
// #4: no two entries are the same transponder.
func (q *Queue) NoDuplicates() bool {
	for i := 0; i < len(q.toScan); i++ {
		for j := i + 1; j < len(q.toScan); j++ {
			if q.toScan[i].Same(q.toScan[j], false) {
				return false
			}
		}
	}
	return true
}
