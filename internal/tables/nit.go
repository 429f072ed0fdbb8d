package tables

import (
	"github.com/plextuner/dvbscan/internal/dvbid"
	"github.com/plextuner/dvbscan/internal/tuning"
)

// NITFinding is one transponder discovered in the NIT, already deduplicated
// by namespace computation but not yet checked against the transponder
// queue.
type NITFinding struct {
	ChannelID dvbid.ChannelID
	Params    tuning.Params
}

// NITLCN is one logical-channel-number assignment discovered in the NIT's
// second descriptor pass.
type NITLCN struct {
	Namespace dvbid.Namespace
	ONID      uint16
	TSID      uint16
	ServiceID uint16
	LCN       uint16
	Signal    int
}

// orbitalTolerance is how close (in tenths of a degree) an announced
// satellite orbital position must be to the currently-tuned one before it's
// snapped to match; used both directly and with the east/west flag
// inverted, to tolerate broadcasters who get that flag wrong.
const orbitalTolerance = 5

// ProcessNIT implements the NIT processor for one transport_stream_loop
// entry: it walks the delivery-system descriptors first (satellite/cable/
// terrestrial/frequency-list) to derive the namespace from whichever
// descriptor matches current's system, then runs the LCN pass, which needs
// that namespace already in hand. current is the transponder the NIT was
// read from; readSignal reports the current signal power, consulted only
// when an LCN descriptor is present.
func ProcessNIT(onid, tsid uint16, descriptors []NITDescriptor, current tuning.Params, readSignal func() int) (findings []NITFinding, lcns []NITLCN) {
	var ns dvbid.Namespace

	for _, d := range descriptors {
		switch d.Kind {
		case DescriptorCableDelivery:
			if current.System != tuning.Cable || d.Cable == nil {
				continue
			}
			params := tuning.Params{System: tuning.Cable, Cable: tuning.Cable{
				Frequency:  d.Cable.FrequencyHz,
				SymbolRate: d.Cable.SymbolRate,
				Modulation: d.Cable.Modulation,
				FEC:        d.Cable.FECInner,
			}}
			ns = dvbid.BuildNamespace(onid, tsid, params.Hash())
			findings = append(findings, NITFinding{
				ChannelID: dvbid.ChannelID{Namespace: ns, TSID: tsid, ONID: onid},
				Params:    params,
			})

		case DescriptorTerrestrialDelivery:
			if current.System != tuning.Terrestrial || d.Terrestrial == nil {
				continue
			}
			params := tuning.Params{System: tuning.Terrestrial, Terrestrial: tuning.Terrestrial{
				Frequency:        d.Terrestrial.CentreFrequencyHz,
				Bandwidth:        d.Terrestrial.Bandwidth,
				FECHigh:          d.Terrestrial.FECHigh,
				FECLow:           d.Terrestrial.FECLow,
				Modulation:       d.Terrestrial.Constellation,
				TransmissionMode: d.Terrestrial.TransmissionMode,
				GuardInterval:    d.Terrestrial.GuardInterval,
				Hierarchy:        d.Terrestrial.Hierarchy,
			}}
			ns = dvbid.BuildNamespace(onid, tsid, params.Hash())
			findings = append(findings, NITFinding{
				ChannelID: dvbid.ChannelID{Namespace: ns, TSID: tsid, ONID: onid},
				Params:    params,
			})

		case DescriptorFrequencyList:
			if current.System != tuning.Terrestrial || d.FrequencyList == nil || d.FrequencyList.CodingType != 3 {
				continue
			}
			for _, freq := range d.FrequencyList.CentreFrequenciesHz {
				// Alternate frequencies don't have to share the same
				// coding parameters as the current transponder - prefer
				// auto-detection for everything except the frequency.
				alt := current.Terrestrial
				alt.Frequency = freq
				alt.FECHigh = tuning.FECAuto
				alt.FECLow = tuning.FECAuto
				alt.Modulation = tuning.ModulationAuto
				alt.TransmissionMode = tuning.TransmissionModeAuto
				alt.GuardInterval = tuning.GuardIntervalAuto
				alt.Hierarchy = tuning.HierarchyAuto
				alt.Inversion = tuning.InversionUnknown
				params := tuning.Params{System: tuning.Terrestrial, Terrestrial: alt}
				ns = dvbid.BuildNamespace(onid, tsid, params.Hash())
				findings = append(findings, NITFinding{
					ChannelID: dvbid.ChannelID{Namespace: ns, TSID: tsid, ONID: onid},
					Params:    params,
				})
			}

		case DescriptorSatelliteDelivery:
			if current.System != tuning.Satellite || d.Satellite == nil || d.Satellite.FrequencyKHz < 10000 {
				continue
			}
			sat := tuning.Satellite{
				Frequency:       d.Satellite.FrequencyKHz,
				SymbolRate:      d.Satellite.SymbolRate,
				Polarisation:    tuning.Polarisation(d.Satellite.Polarisation),
				FEC:             d.Satellite.FECInner,
				Modulation:      d.Satellite.Modulation,
				OrbitalPosition: d.Satellite.OrbitalPosition,
			}
			announced := current.Sat
			if absInt(announced.OrbitalPosition-sat.OrbitalPosition) < orbitalTolerance {
				sat.OrbitalPosition = announced.OrbitalPosition
			}
			if absInt(absInt(3600-announced.OrbitalPosition)-sat.OrbitalPosition) < orbitalTolerance {
				// Found a transponder with an incorrect west/east flag;
				// correct it to the currently-tuned position.
				sat.OrbitalPosition = announced.OrbitalPosition
			}
			if announced.OrbitalPosition != sat.OrbitalPosition {
				continue // on another satellite; drop it
			}
			params := tuning.Params{System: tuning.Satellite, Sat: sat}
			ns = dvbid.BuildNamespace(onid, tsid, params.Hash())
			findings = append(findings, NITFinding{
				ChannelID: dvbid.ChannelID{Namespace: ns, TSID: tsid, ONID: onid},
				Params:    params,
			})

		case DescriptorLogicalChannel:
			// Handled in the second pass below, once ns is known.
		}
	}

	if current.System != tuning.Terrestrial || ns == 0 {
		return findings, nil
	}

	for _, d := range descriptors {
		if d.Kind != DescriptorLogicalChannel || d.LCN == nil {
			continue
		}
		signal := readSignal()
		for _, entry := range d.LCN.Entries {
			if !entry.VisibleService {
				continue
			}
			lcns = append(lcns, NITLCN{
				Namespace: ns,
				ONID:      onid,
				TSID:      tsid,
				ServiceID: entry.ServiceID,
				LCN:       entry.LCN,
				Signal:    signal,
			})
		}
	}
	return findings, lcns
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
