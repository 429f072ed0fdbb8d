// Package orchestrator implements the Section Filter Orchestrator: the
// per-transponder state machine that starts PAT/SDT/NIT/BAT/PMT filters in
// the required dependency order and drives a transponder to Done.
//
// PAT, NIT and BAT start in parallel (NIT/BAT do not wait on anything); SDT
// waits for PAT when PAT is required, since SDT needs the PAT-derived
// transport stream id to filter against and the program list seeds the PMT
// sequence. PMTs run one at a time, in PAT program order, and SDT arrival
// can reveal that the PMT currently in flight (or one not yet started)
// belongs to an obsolete service.
package orchestrator

import (
	"context"

	"github.com/plextuner/dvbscan/internal/scanstate"
	"github.com/plextuner/dvbscan/internal/sifilter"
	"github.com/plextuner/dvbscan/internal/tables"
	"github.com/plextuner/dvbscan/internal/tuning"
)

// Hooks plug the table processors into the orchestrator without the
// orchestrator needing to know about transponder queues, channel databases
// or LCN files.
type Hooks struct {
	// OnPAT returns the PMT entries to sequence through, derived from the
	// PAT's program_number -> pmt_pid pairs.
	OnPAT func(pat *tables.PAT) []scanstate.PmtEntry

	// OnSDT processes a successfully read SDT, cross-referencing every SDT
	// service against pmts (the current PmtsToRead list) to decide
	// is_crypted (absent from PAT ⇒ assumed scrambled) and to record new
	// services. Every service_id present in both lists has now been
	// fully identified by SDT and no longer needs its PMT read for
	// classification: OnSDT returns those program numbers in handled,
	// except currentProgramNumber, which the orchestrator cannot
	// synchronously remove from a filter already in flight — if it
	// appears in pmts, it is returned via abortCurrentProgram instead, so
	// the in-flight PMT is cancelled on its next event rather than
	// finished pointlessly.
	OnSDT func(sdt *tables.SDT, pmts []scanstate.PmtEntry, currentProgramNumber uint16, hasCurrent bool) (handled []uint16, abortCurrentProgram bool)

	// OnNIT processes a successfully read NIT: new transponders and, for
	// terrestrial transponders, LCN entries.
	OnNIT func(nit *tables.NIT)

	// OnBAT processes a successfully read BAT.
	OnBAT func(bat *tables.BAT)

	// OnPMT classifies one completed PMT, returning the PmtEntry updated
	// with the derived service type and scrambled flag.
	OnPMT func(entry scanstate.PmtEntry, pmt *tables.PMT) scanstate.PmtEntry
}

// Spec is the per-transponder configuration the orchestrator needs to build
// filter specs: which filters are required, the current tuning parameters
// (needed for the KabelBW TSID workaround), and the configured network id
// NIT filters against.
type Spec struct {
	Cfg       scanstate.Config
	Params    tuning.Params
	NetworkID uint16
	OnlyFree  bool
}

// Result is the terminal outcome of one transponder's filter sequence.
type Result struct {
	// PATTSID is the transport stream id read from PAT, or -1 if PAT was
	// not required or never completed successfully.
	PATTSID int
	Err     error // non-nil only if ctx was cancelled before Done
}

type event struct {
	kind          sifilter.FilterKind
	result        sifilter.TableResult
	programNumber uint16 // only meaningful for FilterPMT
}

// kabelBWTSIDOverride implements the cable workaround: on two specific
// cable carriers PAT and SDT disagree on the transport stream id, so SDT
// must be filtered against "any TSID" instead of the one PAT reported.
func kabelBWTSIDOverride(tsid uint16, p tuning.Params) bool {
	if p.System != tuning.Cable {
		return false
	}
	freq := p.Cable.Frequency
	switch {
	case tsid == 0x00d7 && absDelta(freq, 618000) < 2000:
		return true
	case tsid == 0x00d8 && absDelta(freq, 626000) < 2000:
		return true
	default:
		return false
	}
}

func absDelta(a, b uint32) int64 {
	d := int64(a) - int64(b)
	if d < 0 {
		return -d
	}
	return d
}

// Run drives one transponder's filters to completion. It returns once
// scanstate.State.Done(), or ctx is cancelled.
func Run(ctx context.Context, demux sifilter.Demux, spec Spec, hooks Hooks) Result {
	var st scanstate.State
	st.Reset(spec.Cfg)

	events := make(chan event, 8)
	patTSID := -1
	patValid := false
	sdtStarted := false
	var lastSDT *tables.SDT
	var lastNIT *tables.NIT

	startPMT := func(entry scanstate.PmtEntry) {
		ch := demux.StartFilter(ctx, sifilter.FilterSpec{
			Kind:          sifilter.FilterPMT,
			PmtPID:        entry.PmtPID,
			ProgramNumber: entry.ProgramNumber,
			Timeout:       sifilter.DefaultTimeout,
		})
		go func(programNumber uint16) {
			events <- event{kind: sifilter.FilterPMT, result: <-ch, programNumber: programNumber}
		}(entry.ProgramNumber)
	}

	startSDT := func() {
		sdtStarted = true
		fspec := sifilter.FilterSpec{Kind: sifilter.FilterSDT, Timeout: sifilter.DefaultTimeout}
		if patValid {
			fspec.TSID = uint16(patTSID)
			fspec.AnyTSID = kabelBWTSIDOverride(uint16(patTSID), spec.Params)
		} else {
			fspec.AnyTSID = true
		}
		ch := demux.StartFilter(ctx, fspec)
		go func() { events <- event{kind: sifilter.FilterSDT, result: <-ch} }()
	}

	// startFilter(): only required filters run, PAT/NIT/BAT in parallel,
	// SDT gated on PAT whenever PAT is required.
	required := spec.Cfg.RequiredMask()
	patRequired := required&scanstate.ReadyPAT != 0
	if !patRequired {
		startSDT()
	}
	if patRequired {
		ch := demux.StartFilter(ctx, sifilter.FilterSpec{Kind: sifilter.FilterPAT, Timeout: sifilter.DefaultTimeout})
		go func() { events <- event{kind: sifilter.FilterPAT, result: <-ch} }()
	}
	if required&scanstate.ReadyNIT != 0 {
		ch := demux.StartFilter(ctx, sifilter.FilterSpec{Kind: sifilter.FilterNIT, NetworkID: spec.NetworkID, Timeout: sifilter.DefaultTimeout})
		go func() { events <- event{kind: sifilter.FilterNIT, result: <-ch} }()
	}
	if required&scanstate.ReadyBAT != 0 {
		ch := demux.StartFilter(ctx, sifilter.FilterSpec{Kind: sifilter.FilterBAT, Timeout: sifilter.DefaultTimeout})
		go func() { events <- event{kind: sifilter.FilterBAT, result: <-ch} }()
	}

	// advancePMT implements PMTready(err): classify a completed PMT when
	// pmt is non-nil, then either erase the in-flight entry (timeout or
	// sdt-obsoleted) or advance past it, starting the next one if any
	// remain.
	advancePMT := func(pmt *tables.PMT, erase bool) {
		cur, ok := st.Pmts.Current()
		if !ok {
			return
		}
		if pmt != nil {
			updated := hooks.OnPMT(cur, pmt)
			st.Pmts.Advance(&updated)
		} else if erase {
			st.Pmts.RemoveByServiceID(cur.ProgramNumber)
		} else {
			st.Pmts.Advance(nil)
		}
		if next, ok := st.Pmts.Current(); ok {
			startPMT(next)
		}
	}

	// channelDone(): re-evaluated after every event. Processes SDT/NIT
	// content exactly once per arrival (ConsumeValid* clears the Valid
	// bit so a later re-entry doesn't reprocess the same table), then
	// finalizes once every required filter is ready and no PMT is
	// outstanding.
	channelDone := func() {
		if st.IsValid(scanstate.ReadySDT) && (!spec.OnlyFree || !st.Pmts.HasOutstanding()) {
			cur, hasCurrent := st.Pmts.Current()
			handled, abortCurrent := hooks.OnSDT(lastSDT, st.Pmts.All(), cur.ProgramNumber, hasCurrent)
			for _, programNumber := range handled {
				st.Pmts.RemoveByServiceID(programNumber)
			}
			if abortCurrent {
				st.AbortCurrentPMT = true
			}
			st.ConsumeValid(scanstate.ReadySDT)
		}
		if st.IsValid(scanstate.ReadyNIT) {
			hooks.OnNIT(lastNIT)
			st.ConsumeValid(scanstate.ReadyNIT)
		}
	}

	finished := false
	for !finished {
		select {
		case <-ctx.Done():
			return Result{PATTSID: patTSID, Err: ctx.Err()}
		case ev := <-events:
			switch ev.kind {
			case sifilter.FilterPAT:
				patValid = ev.result.Err == nil && ev.result.PAT != nil
				st.SetReady(scanstate.ReadyPAT, patValid)
				if patValid {
					patTSID = int(ev.result.PAT.TransportStreamID)
					entries := hooks.OnPAT(ev.result.PAT)
					st.Pmts.Load(entries)
					if cur, ok := st.Pmts.Current(); ok {
						startPMT(cur)
					}
				}
				if !sdtStarted {
					startSDT()
				}
			case sifilter.FilterSDT:
				lastSDT = ev.result.SDT
				st.SetReady(scanstate.ReadySDT, ev.result.Err == nil && ev.result.SDT != nil)
			case sifilter.FilterNIT:
				lastNIT = ev.result.NIT
				st.SetReady(scanstate.ReadyNIT, ev.result.Err == nil && ev.result.NIT != nil)
			case sifilter.FilterBAT:
				if ev.result.Err == nil && ev.result.BAT != nil {
					hooks.OnBAT(ev.result.BAT)
				}
				st.SetReady(scanstate.ReadyBAT, ev.result.Err == nil && ev.result.BAT != nil)
			case sifilter.FilterPMT:
				if st.AbortCurrentPMT {
					// SDT marked this PMT obsolete while it was in flight:
					// its result is treated as a timeout and the entry erased.
					st.AbortCurrentPMT = false
					advancePMT(nil, true)
				} else {
					advancePMT(ev.result.PMT, ev.result.Err != nil)
				}
			}

			channelDone()
			if st.Done() {
				finished = true
			}
		}
	}
	return Result{PATTSID: patTSID, Err: nil}
}
