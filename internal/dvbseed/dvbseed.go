// Package dvbseed adapts the community DVB triplet registry (imported
// unchanged from internal/dvbdb's lamedb/VDR/TvHeadend parsers) to this
// engine's domain: filling in a service name/provider when a scan's own SDT
// read came back empty, so a receiver that never completed an SDT filter
// (timeout, no_sdt-marked manual entry) still gets a usable label instead of
// an empty one.
//
// The parsers this package wraps only cover the lamedb/VDR/TvHeadend
// *services* section (triplet -> name/provider); none of the three formats'
// transponder sections carry enough information to reconstruct a
// tuning.Params reliably across all three delivery systems, so transponder
// list seeding remains the caller's responsibility (config or CLI flags),
// not this package's.
package dvbseed

import (
	"fmt"

	"github.com/plextuner/dvbscan/internal/dvbdb"
	"github.com/plextuner/dvbscan/internal/tables"
)

// Registry is a loaded triplet -> name/provider lookup table.
type Registry struct {
	db *dvbdb.DB
}

// Load opens path as a previously-saved registry snapshot (see dvbdb.DB.Save),
// or returns an empty registry if path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return &Registry{db: dvbdb.New()}, nil
	}
	db, err := dvbdb.Load(path)
	if err != nil {
		return nil, fmt.Errorf("dvbseed: load %s: %w", path, err)
	}
	return &Registry{db: db}, nil
}

// ImportLamedb merges an Enigma2 lamedb file's triplet->name entries into
// the registry.
func (r *Registry) ImportLamedb(path string) (added, total int, err error) {
	return dvbdb.LoadLamedb(r.db, path)
}

// ImportVDRChannels merges a VDR channels.conf file's entries.
func (r *Registry) ImportVDRChannels(path string) (added, total int, err error) {
	return dvbdb.LoadVDRChannels(r.db, path)
}

// ImportTvheadendChannels merges a TvHeadend channel export JSON's entries.
func (r *Registry) ImportTvheadendChannels(path string) (added, total int, err error) {
	return dvbdb.LoadTvheadendChannels(r.db, path)
}

// Save persists the registry for reuse across scan runs.
func (r *Registry) Save(path string) error { return r.db.Save(path) }

// FillBlank returns svc with Name/Provider filled in from the registry when
// they're empty (an unnamed SDT-less service), leaving svc untouched
// otherwise.
func (r *Registry) FillBlank(svc tables.Service) tables.Service {
	if svc.Name != "" || r.db == nil {
		return svc
	}
	entry := r.db.LookupTriplet(svc.Ref.ChannelID.ONID, svc.Ref.ChannelID.TSID, svc.Ref.ServiceID)
	if entry == nil {
		return svc
	}
	svc.Name = entry.Name
	if svc.Provider == "" {
		svc.Provider = entry.NetworkName
	}
	if svc.Provider == "" {
		svc.Provider = r.db.NetworkName(svc.Ref.ChannelID.ONID)
	}
	return svc
}
