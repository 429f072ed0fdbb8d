package channelfs

import (
	"path/filepath"
	"testing"

	"github.com/plextuner/dvbscan/internal/dvbid"
	"github.com/plextuner/dvbscan/internal/scandb"
	"github.com/plextuner/dvbscan/internal/tables"
	"github.com/plextuner/dvbscan/internal/tuning"
)

func TestBuild_GroupsByNamespaceAndTransponder(t *testing.T) {
	store, err := scandb.Open(filepath.Join(t.TempDir(), "scan.db"))
	if err != nil {
		t.Skipf("sqlite not available: %v", err)
	}
	defer store.Close()

	chid := dvbid.ChannelID{Namespace: dvbid.NamespaceCable, TSID: 1, ONID: 2}
	if err := store.AddChannel(chid, tuning.Params{System: tuning.Cable}); err != nil {
		t.Fatal(err)
	}
	ref := dvbid.ServiceRef{ChannelID: chid, ServiceID: 10, ServiceType: dvbid.ServiceTypeVideo}
	if err := store.AddService(tables.Service{Ref: ref, Name: "Demo/Ch"}); err != nil {
		t.Fatal(err)
	}

	snap, err := Build(store)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Namespaces) != 1 || len(snap.Namespaces[0].Transponders) != 1 {
		t.Fatalf("expected one namespace with one transponder, got %+v", snap.Namespaces)
	}
	svcs := snap.Namespaces[0].Transponders[0].Services
	if len(svcs) != 1 {
		t.Fatalf("expected one service, got %+v", svcs)
	}
	if got := FileName(svcs[0]); got != "000a_Demo_Ch" {
		t.Fatalf("expected sanitized file name 000a_Demo_Ch, got %q", got)
	}
}
