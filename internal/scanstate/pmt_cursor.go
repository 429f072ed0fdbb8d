package scanstate

// PmtEntry is one row of PmtsToRead: the PMT for one PAT program.
type PmtEntry struct {
	ProgramNumber uint16
	PmtPID        uint16
	ServiceType   int // derived service type, filled in once the PMT is read
	Scrambled     bool
}

// PmtCursor holds the PmtsToRead mapping and an explicit cursor over it, so
// that it can be iterated while the current element is being erased without
// the usual hazards of mutating a slice mid-range.
type PmtCursor struct {
	entries []PmtEntry
	pos     int // index of the entry currently in flight, or len(entries) when done
}

// NewPmtCursor returns an empty cursor.
func NewPmtCursor() *PmtCursor {
	return &PmtCursor{}
}

// Load replaces the PMT list (from PAT's program→pmt-pid pairs) and resets
// the cursor to the first entry.
func (c *PmtCursor) Load(entries []PmtEntry) {
	c.entries = entries
	c.pos = 0
}

// Current returns the entry currently in flight and true, or zero/false if
// the list is exhausted.
func (c *PmtCursor) Current() (PmtEntry, bool) {
	if c.pos >= len(c.entries) {
		return PmtEntry{}, false
	}
	return c.entries[c.pos], true
}

// HasOutstanding reports whether a PMT is currently in flight.
func (c *PmtCursor) HasOutstanding() bool {
	return c.pos < len(c.entries)
}

// Advance moves the cursor past the current entry, updating it first if
// update is non-nil (e.g. to stamp in the derived service type read from
// the PMT). Call after a PMT completes or times out.
func (c *PmtCursor) Advance(update *PmtEntry) {
	if c.pos >= len(c.entries) {
		return
	}
	if update != nil {
		c.entries[c.pos] = *update
	}
	c.pos++
}

// RemoveByServiceID erases the entry for programNumber wherever it sits. If
// it is the entry currently in flight, the cursor moves on to the entry
// after it without marking it complete; if it lies before the cursor, the
// cursor shifts back so it still points at the same entry. Returns true if
// an entry was removed.
func (c *PmtCursor) RemoveByServiceID(programNumber uint16) bool {
	for i, e := range c.entries {
		if e.ProgramNumber != programNumber {
			continue
		}
		c.entries = append(c.entries[:i], c.entries[i+1:]...)
		if i < c.pos {
			c.pos--
		}
		return true
	}
	return false
}

// All returns every loaded entry, including already-processed ones.
func (c *PmtCursor) All() []PmtEntry {
	return append([]PmtEntry(nil), c.entries...)
}
