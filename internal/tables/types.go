// Package tables implements the table processors: transformations from
// decoded PSI/SI tables (typed views the demux/section-filter layer hands
// us — raw section byte decoding happens upstream) into new services, new
// transponders, and LCN records.
package tables

// PAT is a decoded Program Association Table.
type PAT struct {
	TransportStreamID uint16
	Programs          []PATProgram
}

// PATProgram is one program_number → PMT PID mapping.
type PATProgram struct {
	ProgramNumber uint16
	PmtPID        uint16
}

// SDT is a decoded Service Description Table (one or more sections merged).
type SDT struct {
	TransportStreamID uint16
	OriginalNetworkID uint16
	Services          []SDTService
}

// SDTService is one service_descriptor loop entry.
type SDTService struct {
	ServiceID uint16

	// NameBytes/ProviderBytes are the still-DVB-encoded bytes of the
	// service_descriptor's service_name/provider_name fields; the SDT
	// processor (not the demux layer) is responsible for the DVB-text
	// conversion.
	NameBytes     []byte
	ProviderBytes []byte

	ServiceType byte

	// CASystemIDs lists the CA_system_id of every CA descriptor found in
	// this service's SDT loop. A non-empty list means the service is
	// scrambled independent of what its PMT/PAT entry says.
	CASystemIDs []uint16

	EITSchedule         bool
	EITPresentFollowing bool
}

// NIT is a decoded Network Information Table.
type NIT struct {
	NetworkID        uint16
	TransportStreams []NITTransportStream
}

// NITTransportStream is one transport_stream_loop entry: an (onid, tsid)
// pair plus its descriptor loop.
type NITTransportStream struct {
	OriginalNetworkID uint16
	TransportStreamID uint16
	Descriptors       []NITDescriptor
}

// NITDescriptorKind tags the variant carried by NITDescriptor.
type NITDescriptorKind int

const (
	DescriptorSatelliteDelivery NITDescriptorKind = iota
	DescriptorCableDelivery
	DescriptorTerrestrialDelivery
	DescriptorFrequencyList
	DescriptorLogicalChannel
)

// NITDescriptor is a tagged union over the descriptor types the NIT
// processor understands; exactly one of the typed fields is populated,
// selected by Kind.
type NITDescriptor struct {
	Kind NITDescriptorKind

	Satellite     *SatelliteDeliveryDescriptor
	Cable         *CableDeliveryDescriptor
	Terrestrial   *TerrestrialDeliveryDescriptor
	FrequencyList *FrequencyListDescriptor
	LCN           *LogicalChannelDescriptor
}

// SatelliteDeliveryDescriptor carries a satellite_delivery_system_descriptor.
type SatelliteDeliveryDescriptor struct {
	FrequencyKHz    uint32
	OrbitalPosition int // tenths of a degree, as announced by the NIT (before correction)
	WestEastFlag    bool
	Polarisation    int
	Modulation      int
	SymbolRate      uint32
	FECInner        int
}

// CableDeliveryDescriptor carries a cable_delivery_system_descriptor.
type CableDeliveryDescriptor struct {
	FrequencyHz uint32
	SymbolRate  uint32
	Modulation  int
	FECInner    int
}

// TerrestrialDeliveryDescriptor carries a terrestrial_delivery_system_descriptor.
type TerrestrialDeliveryDescriptor struct {
	CentreFrequencyHz uint32
	Bandwidth         uint32
	FECHigh           int
	FECLow            int
	Constellation     int
	TransmissionMode  int
	GuardInterval     int
	Hierarchy         int
}

// FrequencyListDescriptor carries alternate centre frequencies for a
// terrestrial transponder. CodingType 3 means "centre frequencies".
type FrequencyListDescriptor struct {
	CodingType          int
	CentreFrequenciesHz []uint32
}

// LogicalChannelDescriptor carries one or more LCN entries.
type LogicalChannelDescriptor struct {
	Entries []LCNEntry
}

// LCNEntry is one logical_channel_descriptor loop entry.
type LCNEntry struct {
	ServiceID     uint16
	VisibleService bool
	LCN           uint16
}

// BAT is a decoded Bouquet Association Table. The core does not currently
// need anything from its contents beyond successful arrival — enabling it
// only gates the orchestrator's readyBAT bit — so it carries just enough to
// prove a real section was parsed.
type BAT struct {
	BouquetID uint16
}

// PMT is a decoded Program Map Table for one program.
type PMT struct {
	ProgramNumber uint16
	PCRPid        uint16
	Streams       []PMTStream

	// Descriptors is the top-level program_info descriptor loop. A CA
	// descriptor here marks the whole program scrambled even when no
	// elementary stream carries one.
	Descriptors []PMTDescriptor
}

// PMTStream is one elementary_stream loop entry.
type PMTStream struct {
	Pid         uint16
	StreamType  byte
	Descriptors []PMTDescriptor
}

// PMTDescriptor is a per-ES (or top-level) descriptor. RegistrationFormat is
// only meaningful when Tag is the registration_descriptor tag.
type PMTDescriptor struct {
	Tag                byte
	RegistrationFormat uint32
}
