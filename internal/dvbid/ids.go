// Package dvbid implements the identifier model: typed DVB identifiers and
// the namespace derivation rule that folds a transponder tuning hash into a
// canonical channel identity.
package dvbid

import "fmt"

// Namespace partitions the channel-id space. Its low 16 bits are either a
// tuning-frequency discriminator or zero (folded), depending on whether the
// ONID/TSID pair for the transponder that produced it is trusted.
type Namespace uint32

// Reserved namespace high halves for delivery systems whose ONID/TSID is
// always trusted independent of physical position.
const (
	NamespaceTerrestrial Namespace = 0xEEEE0000
	NamespaceCable       Namespace = 0xFFFF0000
)

// ChannelID identifies a transponder's channel space.
type ChannelID struct {
	Namespace Namespace
	TSID      uint16
	ONID      uint16
}

func (c ChannelID) String() string {
	return fmt.Sprintf("%08X:%04X:%04X", uint32(c.Namespace), c.ONID, c.TSID)
}

// ServiceType mirrors the DVB-SI service_type codes the core cares about.
// North-America-hacked types are remapped to Video before a ServiceRef is
// ever constructed; see tables.ProcessSDT.
type ServiceType uint8

const (
	ServiceTypeVideo ServiceType = 1
	ServiceTypeAudio ServiceType = 2
	ServiceTypeData  ServiceType = 100
)

// ServiceRef identifies one service (TV/radio channel) within a ChannelID.
type ServiceRef struct {
	ChannelID   ChannelID
	ServiceID   uint16
	ServiceType ServiceType
}

func (s ServiceRef) String() string {
	return fmt.Sprintf("%s:%04X:%d", s.ChannelID, s.ServiceID, s.ServiceType)
}
