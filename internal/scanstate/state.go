// Package scanstate holds the per-transponder scan state: the filter
// readiness bitset and the sequential PMT-to-read cursor.
package scanstate

// Flag is one bit of the per-transponder readiness bitset.
type Flag uint16

const (
	ReadySDT Flag = 1 << iota
	ReadyNIT
	ReadyBAT
	ReadyPAT
	ValidSDT
	ValidNIT
	ValidBAT
	ValidPAT
)

// Config selects which filters are required for a transponder, derived from
// the scan's configured flags at the start of every transponder.
type Config struct {
	UsePAT        bool
	NetworkSearch bool // requests NIT
	SearchBAT     bool // requests BAT
}

// RequiredMask computes ready_all: the subset of Ready* bits that must all
// be set for the transponder to be considered Done. SDT is always required.
func (c Config) RequiredMask() Flag {
	mask := ReadySDT
	if c.UsePAT {
		mask |= ReadyPAT
	}
	if c.NetworkSearch {
		mask |= ReadyNIT
	}
	if c.SearchBAT {
		mask |= ReadyBAT
	}
	return mask
}

// State is the mutable per-transponder scan state.
type State struct {
	ready    Flag
	required Flag

	Pmts            *PmtCursor
	AbortCurrentPMT bool
}

// Reset reinitializes State for a new transponder per cfg. Clears ready
// bits, recomputes ready_all, and resets the PMT cursor/abort flag.
func (s *State) Reset(cfg Config) {
	s.ready = 0
	s.required = cfg.RequiredMask()
	s.Pmts = NewPmtCursor()
	s.AbortCurrentPMT = false
}

// SetReady marks a filter complete. valid should be true only when the
// filter completed successfully (not on timeout).
func (s *State) SetReady(f Flag, valid bool) {
	s.ready |= f
	if valid {
		s.ready |= f.validFlag()
	}
}

// validFlag maps a Ready* flag to its matching Valid* flag.
func (f Flag) validFlag() Flag {
	switch f {
	case ReadySDT:
		return ValidSDT
	case ReadyNIT:
		return ValidNIT
	case ReadyBAT:
		return ValidBAT
	case ReadyPAT:
		return ValidPAT
	default:
		return 0
	}
}

// IsReady reports whether f's Ready* bit is set.
func (s *State) IsReady(f Flag) bool { return s.ready&f != 0 }

// IsValid reports whether f's Valid* bit is set.
func (s *State) IsValid(f Flag) bool { return s.ready&f.validFlag() != 0 }

// ConsumeValid clears f's Valid* bit, marking its table content as already
// processed. The Ready* bit is left set: the filter is still done, only its
// content has been consumed.
func (s *State) ConsumeValid(f Flag) { s.ready &^= f.validFlag() }

// Done reports whether every required filter is ready and no PMT is
// outstanding.
func (s *State) Done() bool {
	return s.ready&s.required == s.required && !s.Pmts.HasOutstanding()
}
