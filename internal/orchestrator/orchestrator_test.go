package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/plextuner/dvbscan/internal/scanstate"
	"github.com/plextuner/dvbscan/internal/sifilter"
	"github.com/plextuner/dvbscan/internal/tables"
	"github.com/plextuner/dvbscan/internal/tuning"
)

// scriptedDemux answers StartFilter by kind from a caller-supplied table of
// canned results; PMT results are looked up by program number.
type scriptedDemux struct {
	mu  sync.Mutex
	pat *tables.PAT
	sdt *tables.SDT
	nit *tables.NIT
	bat *tables.BAT
	pmt map[uint16]*tables.PMT

	// pmtGate, when non-nil, holds every PMT reply until it is closed.
	pmtGate chan struct{}

	sawSDTSpec []sifilter.FilterSpec
}

func (d *scriptedDemux) StartFilter(ctx context.Context, spec sifilter.FilterSpec) <-chan sifilter.TableResult {
	ch := make(chan sifilter.TableResult, 1)
	go func() {
		switch spec.Kind {
		case sifilter.FilterPAT:
			ch <- sifilter.TableResult{PAT: d.pat}
		case sifilter.FilterSDT:
			d.mu.Lock()
			d.sawSDTSpec = append(d.sawSDTSpec, spec)
			d.mu.Unlock()
			ch <- sifilter.TableResult{SDT: d.sdt}
		case sifilter.FilterNIT:
			ch <- sifilter.TableResult{NIT: d.nit}
		case sifilter.FilterBAT:
			ch <- sifilter.TableResult{BAT: d.bat}
		case sifilter.FilterPMT:
			if d.pmtGate != nil {
				<-d.pmtGate
			}
			ch <- sifilter.TableResult{PMT: d.pmt[spec.ProgramNumber]}
		}
	}()
	return ch
}

func noopHooks() Hooks {
	return Hooks{
		OnPAT: func(pat *tables.PAT) []scanstate.PmtEntry {
			entries := make([]scanstate.PmtEntry, len(pat.Programs))
			for i, p := range pat.Programs {
				entries[i] = scanstate.PmtEntry{ProgramNumber: p.ProgramNumber, PmtPID: p.PmtPID}
			}
			return entries
		},
		OnSDT: func(sdt *tables.SDT, pmts []scanstate.PmtEntry, cur uint16, hasCur bool) ([]uint16, bool) {
			return nil, false
		},
		OnNIT: func(*tables.NIT) {},
		OnBAT: func(*tables.BAT) {},
		OnPMT: func(entry scanstate.PmtEntry, pmt *tables.PMT) scanstate.PmtEntry {
			return entry
		},
	}
}

func TestRun_PATThenSDTThenPMT(t *testing.T) {
	demux := &scriptedDemux{
		pat: &tables.PAT{TransportStreamID: 42, Programs: []tables.PATProgram{{ProgramNumber: 1, PmtPID: 0x100}}},
		sdt: &tables.SDT{TransportStreamID: 42, OriginalNetworkID: 1},
		pmt: map[uint16]*tables.PMT{1: {ProgramNumber: 1}},
	}

	var classified []uint16
	hooks := noopHooks()
	hooks.OnPMT = func(entry scanstate.PmtEntry, pmt *tables.PMT) scanstate.PmtEntry {
		classified = append(classified, pmt.ProgramNumber)
		entry.ServiceType = 1
		return entry
	}

	spec := Spec{Cfg: scanstate.Config{UsePAT: true}, Params: tuning.Params{System: tuning.Cable}}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result := Run(ctx, demux, spec, hooks)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.PATTSID != 42 {
		t.Fatalf("expected PAT TSID 42, got %d", result.PATTSID)
	}
	if len(classified) != 1 || classified[0] != 1 {
		t.Fatalf("expected PMT for program 1 to be classified, got %v", classified)
	}
	if len(demux.sawSDTSpec) != 1 || demux.sawSDTSpec[0].TSID != 42 || demux.sawSDTSpec[0].AnyTSID {
		t.Fatalf("expected SDT to be filtered against PAT's TSID, got %+v", demux.sawSDTSpec)
	}
}

func TestRun_SDTAbortsInFlightPMT(t *testing.T) {
	demux := &scriptedDemux{
		pat: &tables.PAT{TransportStreamID: 1, Programs: []tables.PATProgram{{ProgramNumber: 5, PmtPID: 0x200}}},
		sdt: &tables.SDT{TransportStreamID: 1, OriginalNetworkID: 1},
		pmt: map[uint16]*tables.PMT{5: {ProgramNumber: 5}},
		// The PMT reply is held until SDT has been handled, so SDT arrives
		// while PMT 5 is still in flight.
		pmtGate: make(chan struct{}),
	}

	hooks := noopHooks()
	hooks.OnSDT = func(sdt *tables.SDT, pmts []scanstate.PmtEntry, cur uint16, hasCur bool) ([]uint16, bool) {
		defer close(demux.pmtGate)
		if hasCur && cur == 5 {
			return nil, true
		}
		return nil, false
	}
	var pmtClassified bool
	hooks.OnPMT = func(entry scanstate.PmtEntry, pmt *tables.PMT) scanstate.PmtEntry {
		pmtClassified = true
		return entry
	}

	spec := Spec{Cfg: scanstate.Config{UsePAT: true}, Params: tuning.Params{System: tuning.Cable}}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result := Run(ctx, demux, spec, hooks)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if pmtClassified {
		t.Fatal("expected the in-flight PMT to be aborted, not classified")
	}
}

func TestKabelBWTSIDOverride(t *testing.T) {
	cable := tuning.Params{System: tuning.Cable, Cable: tuning.Cable{Frequency: 618000}}
	if !kabelBWTSIDOverride(0x00d7, cable) {
		t.Fatal("expected KabelBW override for tsid 0x00d7 near 618000kHz")
	}
	if kabelBWTSIDOverride(0x00d9, cable) {
		t.Fatal("unexpected override for an unrelated tsid")
	}
	sat := tuning.Params{System: tuning.Satellite}
	if kabelBWTSIDOverride(0x00d7, sat) {
		t.Fatal("override must never apply to non-cable systems")
	}
}

func TestRun_NoPATStartsSDTImmediatelyWithAnyTSID(t *testing.T) {
	demux := &scriptedDemux{
		sdt: &tables.SDT{TransportStreamID: 9, OriginalNetworkID: 1},
	}
	hooks := noopHooks()
	spec := Spec{Cfg: scanstate.Config{UsePAT: false}, Params: tuning.Params{System: tuning.Satellite}}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result := Run(ctx, demux, spec, hooks)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.PATTSID != -1 {
		t.Fatalf("expected no PAT TSID when PAT is not required, got %d", result.PATTSID)
	}
	if len(demux.sawSDTSpec) != 1 || !demux.sawSDTSpec[0].AnyTSID {
		t.Fatalf("expected SDT to filter on any TSID when PAT is disabled, got %+v", demux.sawSDTSpec)
	}
}
