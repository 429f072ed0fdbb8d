package scandb

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/plextuner/dvbscan/internal/dvbid"
	"github.com/plextuner/dvbscan/internal/tuning"
)

// marshalParams stores tuning.Params as JSON; the core never queries on
// individual tuning fields, only replays them verbatim on a later rescan.
func marshalParams(p tuning.Params) ([]byte, error) {
	return json.Marshal(p)
}

func unmarshalParams(blob []byte) (tuning.Params, error) {
	var p tuning.Params
	err := json.Unmarshal(blob, &p)
	return p, err
}

// sortName derives a sort key the way Enigma2-style channel lists do:
// lowercase, with a leading "the "/"das "/"der "/"die " article dropped.
func sortName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, article := range []string{"the ", "das ", "der ", "die "} {
		if strings.HasPrefix(lower, article) {
			return strings.TrimSpace(lower[len(article):])
		}
	}
	return lower
}

func encodeCAIDs(ids []uint16) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 16)
	}
	return strings.Join(parts, ",")
}

func decodeCAIDs(s string) []uint16 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]uint16, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 16, 16)
		if err != nil {
			continue
		}
		ids = append(ids, uint16(n))
	}
	return ids
}

// encodeRefs/decodeRefs store a bouquet's service list as JSON; the
// database never needs to query on individual ref fields, only replay the
// ordered list back when a client asks for the bouquet.
func encodeRefs(refs []dvbid.ServiceRef) string {
	blob, err := json.Marshal(refs)
	if err != nil {
		return "[]"
	}
	return string(blob)
}

func decodeRefs(s string) []dvbid.ServiceRef {
	if s == "" {
		return nil
	}
	var refs []dvbid.ServiceRef
	if err := json.Unmarshal([]byte(s), &refs); err != nil {
		return nil
	}
	return refs
}
