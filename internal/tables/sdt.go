package tables

import (
	"strings"

	"github.com/plextuner/dvbscan/internal/dvbid"
	"github.com/plextuner/dvbscan/internal/scanstate"
)

// northAmericaServiceTypes are DISH/BEV satellite service types that should
// be reclassified as ordinary digital television, per the North America
// scanning hack.
var northAmericaServiceTypes = map[byte]bool{
	128: true, 133: true, 137: true, 144: true, 145: true, 150: true,
	154: true, 163: true, 164: true, 166: true, 167: true, 168: true,
}

// Service is one new service discovered on this transponder, ready for
// insertion into the channel database.
type Service struct {
	Ref       dvbid.ServiceRef
	Name      string
	Provider  string
	CAIDs     []uint16
	Scrambled bool
}

// ProcessSDT implements the SDT processor: for each SDT service,
// cross-references pmts (the PAT-derived PmtsToRead list) to decide
// is_crypted — a CA descriptor in the SDT loop itself, or the PMT entry
// marked scrambled, or absence from PAT altogether (assumed scrambled) —
// applies the North America service-type hack, honors onlyFree, and decides
// which program numbers pmts no longer needs a PMT read for. namespace/
// tsid/onid identify the channel the SDT was read from.
func ProcessSDT(sdt *SDT, pmts []scanstate.PmtEntry, ns dvbid.Namespace, onlyFree bool) (services []Service, handled []uint16) {
	scrambledByProgram := make(map[uint16]bool, len(pmts))
	for _, p := range pmts {
		scrambledByProgram[p.ProgramNumber] = p.Scrambled
	}

	chid := dvbid.ChannelID{Namespace: ns, TSID: sdt.TransportStreamID, ONID: sdt.OriginalNetworkID}

	for _, svc := range sdt.Services {
		pmtScrambled, foundInPAT := scrambledByProgram[svc.ServiceID]
		isCrypted := len(svc.CASystemIDs) > 0 || pmtScrambled || !foundInPAT

		if !onlyFree || !isCrypted {
			serviceType := int(svc.ServiceType)
			if northAmericaServiceTypes[svc.ServiceType] {
				serviceType = 1
			}

			s := Service{
				Ref: dvbid.ServiceRef{
					ChannelID:   chid,
					ServiceID:   svc.ServiceID,
					ServiceType: dvbid.ServiceType(serviceType),
				},
				Name:      strings.TrimSpace(DecodeDVBString(svc.NameBytes)),
				Provider:  strings.TrimSpace(DecodeDVBString(svc.ProviderBytes)),
				CAIDs:     svc.CASystemIDs,
				Scrambled: isCrypted,
			}
			if isCrypted && len(s.CAIDs) == 0 {
				s.CAIDs = []uint16{0}
			}
			services = append(services, s)
		}

		if foundInPAT {
			handled = append(handled, svc.ServiceID)
		}
	}
	return services, handled
}
