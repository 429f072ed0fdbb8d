// Package channelfs exposes the scanned channel database as a read-only
// FUSE tree: namespace / transponder / service.
package channelfs

import (
	"fmt"
	"sort"

	"github.com/plextuner/dvbscan/internal/dvbid"
	"github.com/plextuner/dvbscan/internal/scandb"
	"github.com/plextuner/dvbscan/internal/tables"
)

// Transponder is one transponder's services, as browsed under its namespace.
type Transponder struct {
	ChannelID dvbid.ChannelID
	Services  []tables.Service
}

// Namespace groups every transponder filed under one namespace.
type Namespace struct {
	Namespace    dvbid.Namespace
	Transponders []Transponder
}

// Snapshot is an immutable, in-memory view of the channel database taken at
// mount time; the tree is served from this snapshot rather than hitting the
// database on every lookup.
type Snapshot struct {
	Namespaces []Namespace
}

// DirName returns the directory name this namespace is browsed under.
func (n Namespace) DirName() string { return fmt.Sprintf("%08X", uint32(n.Namespace)) }

// DirName returns the directory name this transponder is browsed under.
func (t Transponder) DirName() string {
	return fmt.Sprintf("%04X-%04X", t.ChannelID.ONID, t.ChannelID.TSID)
}

// FileName returns the file name one service is browsed under.
func FileName(svc tables.Service) string {
	name := svc.Name
	if name == "" {
		name = "unnamed"
	}
	return fmt.Sprintf("%04x_%s", svc.Ref.ServiceID, sanitize(name))
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r == '/' || r == 0:
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// Build queries store for every channel and its services and groups them
// into a Snapshot, ordered for stable directory listings.
func Build(store *scandb.Store) (*Snapshot, error) {
	channels, err := store.ListChannels()
	if err != nil {
		return nil, fmt.Errorf("channelfs: build: %w", err)
	}

	byNamespace := make(map[dvbid.Namespace][]Transponder)
	for _, row := range channels {
		services, err := store.ServicesIn(row.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("channelfs: services for %s: %w", row.ChannelID, err)
		}
		byNamespace[row.ChannelID.Namespace] = append(byNamespace[row.ChannelID.Namespace], Transponder{
			ChannelID: row.ChannelID,
			Services:  services,
		})
	}

	snap := &Snapshot{}
	for ns, transponders := range byNamespace {
		sort.Slice(transponders, func(i, j int) bool {
			return transponders[i].DirName() < transponders[j].DirName()
		})
		snap.Namespaces = append(snap.Namespaces, Namespace{Namespace: ns, Transponders: transponders})
	}
	sort.Slice(snap.Namespaces, func(i, j int) bool {
		return snap.Namespaces[i].DirName() < snap.Namespaces[j].DirName()
	})
	return snap, nil
}
