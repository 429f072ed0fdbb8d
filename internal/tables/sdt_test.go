package tables

import (
	"testing"

	"github.com/plextuner/dvbscan/internal/dvbid"
	"github.com/plextuner/dvbscan/internal/scanstate"
)

func TestProcessSDT_AbsentFromPATIsAssumedScrambled(t *testing.T) {
	sdt := &SDT{
		TransportStreamID: 1, OriginalNetworkID: 2,
		Services: []SDTService{{ServiceID: 10, NameBytes: []byte("BBC One"), ServiceType: 1}},
	}
	services, handled := ProcessSDT(sdt, nil, dvbid.Namespace(0xEEEE0000), false)
	if len(handled) != 0 {
		t.Fatalf("expected nothing handled when the PAT never mentioned service 10, got %v", handled)
	}
	if len(services) != 1 || !services[0].Scrambled {
		t.Fatalf("expected service absent from PAT to be assumed scrambled, got %+v", services)
	}
	if len(services[0].CAIDs) != 1 || services[0].CAIDs[0] != 0 {
		t.Fatalf("expected a placeholder CA id for a scrambled service with no descriptor, got %v", services[0].CAIDs)
	}
}

func TestProcessSDT_OnlyFreeDropsScrambledButStillMarksHandled(t *testing.T) {
	sdt := &SDT{
		TransportStreamID: 1, OriginalNetworkID: 2,
		Services: []SDTService{{ServiceID: 10, NameBytes: []byte("Pay Channel"), ServiceType: 1}},
	}
	pmts := []scanstate.PmtEntry{{ProgramNumber: 10, Scrambled: true}}
	services, handled := ProcessSDT(sdt, pmts, dvbid.Namespace(0xEEEE0000), true)
	if len(services) != 0 {
		t.Fatalf("expected onlyFree to drop the scrambled service, got %+v", services)
	}
	if len(handled) != 1 || handled[0] != 10 {
		t.Fatalf("expected service 10 to still be marked handled regardless of onlyFree, got %v", handled)
	}
}

func TestProcessSDT_CADescriptorInSDTMarksScrambledEvenWhenPMTDidNot(t *testing.T) {
	sdt := &SDT{
		TransportStreamID: 1, OriginalNetworkID: 2,
		Services: []SDTService{{ServiceID: 10, NameBytes: []byte("Encrypted"), ServiceType: 1, CASystemIDs: []uint16{0x1702}}},
	}
	pmts := []scanstate.PmtEntry{{ProgramNumber: 10, Scrambled: false}}
	services, _ := ProcessSDT(sdt, pmts, dvbid.Namespace(0xEEEE0000), false)
	if len(services) != 1 || !services[0].Scrambled {
		t.Fatalf("expected an SDT-level CA descriptor to mark the service scrambled, got %+v", services)
	}
	if len(services[0].CAIDs) != 1 || services[0].CAIDs[0] != 0x1702 {
		t.Fatalf("expected the real CA system id from the descriptor to be stored, got %v", services[0].CAIDs)
	}
}

func TestProcessSDT_OnlyFreeDropsSDTLevelCAEvenWhenPMTSaysFree(t *testing.T) {
	sdt := &SDT{
		TransportStreamID: 1, OriginalNetworkID: 2,
		Services: []SDTService{{ServiceID: 10, NameBytes: []byte("Encrypted"), ServiceType: 1, CASystemIDs: []uint16{0x1702}}},
	}
	pmts := []scanstate.PmtEntry{{ProgramNumber: 10, Scrambled: false}}
	services, _ := ProcessSDT(sdt, pmts, dvbid.Namespace(0xEEEE0000), true)
	if len(services) != 0 {
		t.Fatalf("expected onlyFree to drop a service the PMT called free but the SDT CA descriptor marks scrambled, got %+v", services)
	}
}

func TestProcessSDT_NorthAmericaHackReclassifiesToVideo(t *testing.T) {
	sdt := &SDT{
		TransportStreamID: 1, OriginalNetworkID: 2,
		Services: []SDTService{{ServiceID: 10, NameBytes: []byte("Dish Ch"), ServiceType: 150}},
	}
	pmts := []scanstate.PmtEntry{{ProgramNumber: 10, Scrambled: false}}
	services, _ := ProcessSDT(sdt, pmts, dvbid.Namespace(0xEEEE0000), false)
	if len(services) != 1 || services[0].Ref.ServiceType != dvbid.ServiceTypeVideo {
		t.Fatalf("expected service_type 150 to be reclassified to video, got %+v", services)
	}
}

func TestProcessSDT_NamesAreTrimmedAndDVBDecoded(t *testing.T) {
	sdt := &SDT{
		TransportStreamID: 1, OriginalNetworkID: 2,
		Services: []SDTService{{ServiceID: 10, NameBytes: []byte(" BBC One  "), ServiceType: 1}},
	}
	pmts := []scanstate.PmtEntry{{ProgramNumber: 10}}
	services, _ := ProcessSDT(sdt, pmts, dvbid.Namespace(0xEEEE0000), false)
	if len(services) != 1 || services[0].Name != "BBC One" {
		t.Fatalf("expected trimmed name %q, got %+v", "BBC One", services)
	}
}
