package scanner

import (
	"log"

	"github.com/plextuner/dvbscan/internal/dvbid"
	"github.com/plextuner/dvbscan/internal/dvbseed"
	"github.com/plextuner/dvbscan/internal/scandb"
	"github.com/plextuner/dvbscan/internal/tuning"
)

const lastScannedBouquet = "Last Scanned"

// insertInto implements the insertion policy: purge existing services on
// delivery systems touched by this scan (when RemoveServices is set), then
// add every discovered channel and service, and — for a foreground scan —
// recreate the "Last Scanned" bouquet.
// registry may be nil; when present, a service discovered with no SDT-read
// name (e.g. a no_sdt-marked manual entry carried forward) is labeled from
// the community triplet registry instead of staying blank.
func insertInto(store *scandb.Store, d *Driver, flags Flags, background bool, registry *dvbseed.Registry) error {
	if flags.RemoveServices {
		purge(store, d, flags)
	}

	for chid, params := range d.NewChannels() {
		p := params
		if flags.OnlyFree {
			p.OnlyFree = true
		}
		if err := store.AddChannel(chid, p); err != nil {
			log.Printf("scanner: insert_into: add channel %s: %v", chid, err)
		}
	}

	var refs []dvbid.ServiceRef
	for _, svc := range d.NewServices() {
		if registry != nil {
			svc = registry.FillBlank(svc)
		}
		if err := store.AddService(svc); err != nil {
			log.Printf("scanner: insert_into: add service %s: %v", svc.Ref, err)
			continue
		}
		refs = append(refs, svc.Ref)
	}

	if !background {
		if err := store.PutBouquet(scandb.Bouquet{Name: lastScannedBouquet, Refs: refs}); err != nil {
			log.Printf("scanner: insert_into: recreate %q bouquet: %v", lastScannedBouquet, err)
		}
	}
	return nil
}

// purge implements the removal half of the insertion policy: scoped to
// individually-visited transponders when DontRemoveUnscanned is set,
// otherwise by delivery-system wildcard.
func purge(store *scandb.Store, d *Driver, flags Flags) {
	visited := append(append([]tuning.Params{}, d.Scanned()...), d.Unavailable()...)

	if flags.DontRemoveUnscanned {
		for _, p := range visited {
			chid, ok := d.ChannelIDFor(p)
			if !ok {
				continue // no valid SDT was ever read for this transponder
			}
			if err := store.RemoveServices(0, &chid); err != nil {
				log.Printf("scanner: insert_into: remove services on %s: %v", chid, err)
			}
		}
		return
	}

	touchedCable, touchedTerrestrial := false, false
	positions := make(map[int]bool)
	for _, p := range visited {
		switch p.System {
		case tuning.Cable:
			touchedCable = true
		case tuning.Terrestrial:
			touchedTerrestrial = true
		case tuning.Satellite:
			positions[p.Position()&0xFFFF] = true
		}
	}

	if touchedCable {
		if err := store.RemoveServices(dvbid.NamespaceCable, nil); err != nil {
			log.Printf("scanner: insert_into: remove cable services: %v", err)
		}
	}
	if touchedTerrestrial {
		if err := store.RemoveServices(dvbid.NamespaceTerrestrial, nil); err != nil {
			log.Printf("scanner: insert_into: remove terrestrial services: %v", err)
		}
	}
	for pos := range positions {
		var err error
		if flags.DontRemoveFeeds {
			// Narrow match: only the default (folded) namespace for this
			// orbital position, preserving feeds at other sub-namespaces.
			err = store.RemoveServices(dvbid.Namespace(pos<<16), nil)
		} else {
			err = store.RemoveServicesByPositionPrefix(uint16(pos))
		}
		if err != nil {
			log.Printf("scanner: insert_into: remove satellite services at position %d: %v", pos, err)
		}
	}
}
