// Package scanner implements the Scan Driver: the top-level loop that pulls
// the next transponder off the queue, drives tuning, runs the orchestrator,
// and emits progress events to an Observer. It owns the final handoff to the
// persistent channel database.
package scanner

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/plextuner/dvbscan/internal/dvbid"
	"github.com/plextuner/dvbscan/internal/dvbseed"
	"github.com/plextuner/dvbscan/internal/lcn"
	"github.com/plextuner/dvbscan/internal/orchestrator"
	"github.com/plextuner/dvbscan/internal/scandb"
	"github.com/plextuner/dvbscan/internal/scanstate"
	"github.com/plextuner/dvbscan/internal/sifilter"
	"github.com/plextuner/dvbscan/internal/tables"
	"github.com/plextuner/dvbscan/internal/tpqueue"
	"github.com/plextuner/dvbscan/internal/tuning"
)

// Flags holds the scan configuration flags that govern one driver run.
type Flags struct {
	UsePAT                  bool
	NetworkSearch           bool // scanNetworkSearch: request NIT
	SearchBAT               bool // scanSearchBAT
	OnlyFree                bool // scanOnlyFree
	RemoveServices          bool // scanRemoveServices
	DontRemoveUnscanned     bool // scanDontRemoveUnscanned
	DontRemoveFeeds         bool // scanDontRemoveFeeds
	ClearToScanOnFirstNIT   bool
}

// Observer receives progress events as the scan proceeds.
type Observer interface {
	Update(params tuning.Params)
	NewService(svc tables.Service)
	Fail(params tuning.Params)
	Finish()
}

// NopObserver discards every event; useful as a default or in tests that
// don't care about progress reporting.
type NopObserver struct{}

func (NopObserver) Update(tuning.Params)    {}
func (NopObserver) NewService(tables.Service) {}
func (NopObserver) Fail(tuning.Params)      {}
func (NopObserver) Finish()                 {}

// Driver is the Scan Driver. Construct with New, then call Start.
type Driver struct {
	demux    sifilter.Demux
	frontend sifilter.Frontend
	observer Observer

	queue *tpqueue.Queue
	lcn   *lcn.Writer // nil if unopenable; writes are silently skipped

	flags     Flags
	networkID uint16
	runID     uuid.UUID

	tuneLimiter *rate.Limiter

	newServices       []tables.Service
	newChannels       map[dvbid.ChannelID]tuning.Params
	scannedChannelIDs map[tuning.Params]dvbid.ChannelID

	lastServiceName string
	lastServiceRef  string

	clearToScanArmed bool
}

// New constructs a Driver. tuneLimiter paces retune calls (the frontend
// driver and rotor motors need settling time between tunes); pass
// rate.NewLimiter(rate.Every(time.Second), 1) for a sensible default.
func New(demux sifilter.Demux, frontend sifilter.Frontend, observer Observer, tuneLimiter *rate.Limiter) *Driver {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Driver{
		demux:       demux,
		frontend:    frontend,
		observer:    observer,
		queue:       tpqueue.New(),
		tuneLimiter: tuneLimiter,
		runID:       uuid.New(),
	}
}

// RunID identifies this scan run, for correlating logs and metrics.
func (d *Driver) RunID() uuid.UUID { return d.runID }

// Start implements start(known_transponders, flags, network_id): clears all
// queues, seeds to-scan from known (deduplicated with exact=true), opens or
// truncates the LCN file per the RemoveServices flag, and begins scanning.
func (d *Driver) Start(ctx context.Context, known []tuning.Params, flags Flags, networkID uint16, lcnPath string) error {
	d.flags = flags
	d.networkID = networkID
	d.newServices = nil
	d.newChannels = make(map[dvbid.ChannelID]tuning.Params)
	d.scannedChannelIDs = make(map[tuning.Params]dvbid.ChannelID)
	d.clearToScanArmed = flags.ClearToScanOnFirstNIT

	d.queue.Reset()
	d.queue.Seed(known)

	if d.lcn != nil {
		d.lcn.Close()
		d.lcn = nil
	}
	if lcnPath != "" {
		if flags.RemoveServices {
			if err := os.Truncate(lcnPath, 0); err != nil && !os.IsNotExist(err) {
				log.Printf("scanner: truncate lcn file: %v", err)
			}
		}
		w, err := lcn.Open(lcnPath)
		if err != nil {
			log.Printf("scanner: lcn file unopenable, writes will be skipped: %v", err)
		} else {
			d.lcn = w
		}
	}

	return d.nextChannel(ctx)
}

// nextChannel implements next_channel: pops the next to-scan entry, tunes,
// and drives it through the orchestrator. On tune or lock failure it marks
// the transponder unavailable and recurses; on an empty queue it emits
// Finish.
func (d *Driver) nextChannel(ctx context.Context) error {
	for {
		params, ok := d.queue.PopNext()
		if !ok {
			d.queue.ClearCurrent()
			d.observer.Finish()
			return nil
		}
		d.queue.SetCurrent(params)
		d.observer.Update(params)

		if d.tuneLimiter != nil {
			if err := d.tuneLimiter.Wait(ctx); err != nil {
				return fmt.Errorf("scanner: %w", err)
			}
		}
		if err := d.frontend.Tune(ctx, params); err != nil {
			log.Printf("scanner: tune failed: %v", err)
			d.queue.MarkUnavailable(params)
			d.observer.Fail(params)
			continue
		}

		locked, err := d.awaitLock(ctx)
		if err != nil {
			return fmt.Errorf("scanner: %w", err)
		}
		if !locked {
			d.queue.MarkUnavailable(params)
			d.observer.Fail(params)
			continue
		}

		result := d.runOrchestrator(ctx, params)
		if result.Err != nil {
			return fmt.Errorf("scanner: %w", result.Err)
		}
		d.queue.MarkScanned(params)
	}
}

// awaitLock blocks until the frontend reports Locked or Failed.
func (d *Driver) awaitLock(ctx context.Context) (locked bool, err error) {
	if d.frontend.State() == sifilter.StateLocked {
		return true, nil
	}
	ch := make(chan sifilter.StateChange, 4)
	unsubscribe := d.frontend.Subscribe(ch)
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case sc := <-ch:
			switch sc.State {
			case sifilter.StateLocked:
				return true, nil
			case sifilter.StateFailed:
				return false, nil
			}
		}
	}
}

// runOrchestrator wires the table processors into one orchestrator.Run call
// for the currently-tuned transponder.
func (d *Driver) runOrchestrator(ctx context.Context, params tuning.Params) orchestrator.Result {
	cfg := scanstate.Config{
		UsePAT:        d.flags.UsePAT,
		NetworkSearch: d.flags.NetworkSearch,
		SearchBAT:     d.flags.SearchBAT,
	}
	spec := orchestrator.Spec{
		Cfg:       cfg,
		Params:    params,
		NetworkID: d.networkID,
		OnlyFree:  d.flags.OnlyFree,
	}

	hooks := orchestrator.Hooks{
		OnPAT: func(pat *tables.PAT) []scanstate.PmtEntry {
			entries := make([]scanstate.PmtEntry, len(pat.Programs))
			for i, prog := range pat.Programs {
				entries[i] = scanstate.PmtEntry{ProgramNumber: prog.ProgramNumber, PmtPID: prog.PmtPID}
			}
			return entries
		},
		OnSDT: func(sdt *tables.SDT, pmts []scanstate.PmtEntry, currentProgramNumber uint16, hasCurrent bool) (handled []uint16, abort bool) {
			ns := dvbid.BuildNamespace(sdt.OriginalNetworkID, sdt.TransportStreamID, params.Hash())
			d.scannedChannelIDs[params] = dvbid.ChannelID{Namespace: ns, TSID: sdt.TransportStreamID, ONID: sdt.OriginalNetworkID}
			services, ids := tables.ProcessSDT(sdt, pmts, ns, d.flags.OnlyFree)
			for _, svc := range services {
				d.addNewService(svc)
			}
			for _, id := range ids {
				if hasCurrent && id == currentProgramNumber {
					abort = true
					continue
				}
				handled = append(handled, id)
			}
			return handled, abort
		},
		OnNIT: func(nit *tables.NIT) { d.processNIT(nit, params) },
		OnBAT: func(*tables.BAT) {}, // arrival alone gates ReadyBAT; no content to process
		OnPMT: func(entry scanstate.PmtEntry, pmt *tables.PMT) scanstate.PmtEntry {
			serviceType, scrambled := tables.Classify(pmt)
			entry.ServiceType = serviceType
			entry.Scrambled = scrambled
			return entry
		},
	}

	return orchestrator.Run(ctx, d.demux, spec, hooks)
}

// processNIT implements the clearToScanOnFirstNIT snapshot/restore wrapper
// around the per-transport-stream NIT processing.
func (d *Driver) processNIT(nit *tables.NIT, current tuning.Params) {
	var snapshot []tuning.Params
	snapshotTaken := false
	if d.clearToScanArmed {
		snapshot = d.queue.SnapshotToScan()
		snapshotTaken = true
	}

	for _, ts := range nit.TransportStreams {
		findings, lcns := tables.ProcessNIT(ts.OriginalNetworkID, ts.TransportStreamID, ts.Descriptors, current, func() int {
			return d.frontend.ReadFrontendData(sifilter.KindSignalPower)
		})
		for _, f := range findings {
			d.queue.AddToScan(f.Params)
			d.newChannels[f.ChannelID] = f.Params
		}
		for _, l := range lcns {
			d.writeLCN(l)
		}
	}

	if snapshotTaken {
		if d.queue.Len() == 0 {
			log.Printf("scanner: clearToScanOnFirstNIT was set, but this NIT carried no transponders; refusing to stop the scan")
			d.queue.RestoreToScan(snapshot)
		} else {
			d.clearToScanArmed = false
		}
	}
}

func (d *Driver) writeLCN(l tables.NITLCN) {
	if d.lcn == nil {
		return
	}
	if err := d.lcn.Add(uint32(l.Namespace), l.ONID, l.TSID, l.ServiceID, l.LCN, l.Signal); err != nil {
		log.Printf("scanner: lcn write failed: %v", err)
	}
}

func (d *Driver) addNewService(svc tables.Service) {
	d.newServices = append(d.newServices, svc)
	d.lastServiceName = svc.Name
	d.lastServiceRef = svc.Ref.String()
	d.observer.NewService(svc)
}

// Stats is the result of get_stats().
type Stats struct {
	Done, Total, Services int
}

// GetStats implements get_stats().
func (d *Driver) GetStats() Stats {
	done := len(d.queue.Scanned()) + len(d.queue.Unavailable())
	return Stats{
		Done:     done,
		Total:    d.queue.Len() + done,
		Services: len(d.newServices),
	}
}

// GetLastServiceName implements get_last_service_name().
func (d *Driver) GetLastServiceName() string { return d.lastServiceName }

// GetLastServiceRef implements get_last_service_ref().
func (d *Driver) GetLastServiceRef() string { return d.lastServiceRef }

// NewServices returns every service discovered so far, for insert_into.
func (d *Driver) NewServices() []tables.Service { return d.newServices }

// NewChannels returns every transponder discovered so far, for insert_into.
func (d *Driver) NewChannels() map[dvbid.ChannelID]tuning.Params {
	out := make(map[dvbid.ChannelID]tuning.Params, len(d.newChannels))
	for k, v := range d.newChannels {
		out[k] = v
	}
	return out
}

// Scanned/Unavailable expose the terminal queue state, for insert_into.
func (d *Driver) Scanned() []tuning.Params     { return d.queue.Scanned() }
func (d *Driver) Unavailable() []tuning.Params { return d.queue.Unavailable() }

// ChannelIDFor returns the channel id a scanned transponder's services were
// filed under (derived from its SDT), for the DontRemoveUnscanned purge
// path. ok is false for a transponder whose SDT never validated (nothing
// was ever added for it, so there's nothing to remove).
func (d *Driver) ChannelIDFor(p tuning.Params) (dvbid.ChannelID, bool) {
	chid, ok := d.scannedChannelIDs[p]
	return chid, ok
}

// InsertInto hands the scan's results off to the persistent database,
// implementing the insertion policy. registry may be nil; see insertInto's
// doc comment.
func (d *Driver) InsertInto(store *scandb.Store, background bool, registry *dvbseed.Registry) error {
	return insertInto(store, d, d.flags, background, registry)
}
