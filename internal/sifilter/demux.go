package sifilter

import (
	"context"
	"time"

	"github.com/plextuner/dvbscan/internal/tables"
)

// FilterKind selects which PSI/SI table a filter is started for.
type FilterKind int

const (
	FilterPAT FilterKind = iota
	FilterSDT
	FilterNIT
	FilterBAT
	FilterPMT
)

func (k FilterKind) String() string {
	switch k {
	case FilterPAT:
		return "PAT"
	case FilterSDT:
		return "SDT"
	case FilterNIT:
		return "NIT"
	case FilterBAT:
		return "BAT"
	case FilterPMT:
		return "PMT"
	default:
		return "unknown"
	}
}

// DefaultTimeout is the per-filter timeout: every filter, including each
// sequential PMT, carries a 4-second timeout.
const DefaultTimeout = 4 * time.Second

// FilterSpec parameterises one filter.start(demux, spec) call.
type FilterSpec struct {
	Kind FilterKind

	// TSID constrains SDT to a known transport-stream-id; AnyTSID requests
	// "any TSID" (used when PAT is disabled, or for the KabelBW
	// workaround transponders where PAT and SDT disagree on TSID).
	TSID    uint16
	AnyTSID bool

	// NetworkID constrains NIT to the configured network id.
	NetworkID uint16

	// PmtPID and ProgramNumber address one program's PMT.
	PmtPID        uint16
	ProgramNumber uint16

	Timeout time.Duration
}

// TableResult is delivered exactly once on the channel StartFilter returns.
// Err is nil on success, non-nil on timeout or cancellation (mirroring the
// consumed demux's table_ready(err) callback: err=0 success, err<0 failure).
// Exactly one of the table pointers is populated on success.
type TableResult struct {
	Err error

	PAT *tables.PAT
	SDT *tables.SDT
	NIT *tables.NIT
	BAT *tables.BAT
	PMT *tables.PMT
}

// Demux is the demultiplexer/section-filter primitive this engine consumes:
// one call to StartFilter begins a filter, and exactly one TableResult is
// sent on the returned channel when it completes or times out.
type Demux interface {
	StartFilter(ctx context.Context, spec FilterSpec) <-chan TableResult
}
