// community_import.go — file-based importers for community-maintained DVB
// channel registries. Unlike sources.go's receiver-format parsers (lamedb,
// VDR, TvHeadend), these read a flat CSV/JSON export an operator downloaded
// ahead of time; neither function fetches anything over the network itself.
package dvbdb

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

// LoadDVBServicesCSV parses a DVB services registry CSV and merges entries.
// dvbservices.com is the official DVB registration authority for broadcasters
// and does NOT offer a public download — this function accepts any CSV in the
// same format, e.g. from community mirrors, hobbyist exports (kingofsat.net,
// lyngsat.com column exports), or your own data.
// Expected columns (case-insensitive): ONID, TSID, SID, ServiceName,
// NetworkName, Country.  ONID/TSID/SID are always read as hex, with or
// without a "0x" prefix; decimal values are not recognised.
func LoadDVBServicesCSV(db *DB, path string) (added, total int, err error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("dvbservices csv: header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	getCol := func(row []string, name string) string {
		if i, ok := cols[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	parseHex := func(s string) uint16 {
		s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
		s = strings.TrimPrefix(s, "0X")
		v, _ := strconv.ParseUint(s, 16, 32)
		return uint16(v)
	}

	before := db.Len()
	rows := 0
	for {
		row, rerr := r.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			log.Printf("dvbservices csv: row error (skipping): %v", rerr)
			continue
		}
		rows++
		onid := parseHex(getCol(row, "onid"))
		tsid := parseHex(getCol(row, "tsid"))
		sid := parseHex(getCol(row, "sid"))
		name := getCol(row, "servicename")
		if name == "" {
			name = getCol(row, "service_name")
		}
		if onid == 0 && tsid == 0 && sid == 0 {
			continue
		}
		netName := getCol(row, "networkname")
		if netName == "" {
			netName = getCol(row, "network_name")
		}
		db.upsert(Entry{
			OriginalNetworkID: onid,
			TransportStreamID: tsid,
			ServiceID:         sid,
			Name:              name,
			NetworkName:       netName,
			Country:           strings.ToUpper(getCol(row, "country")),
		})
	}
	db.buildIndices()
	added = db.Len() - before
	log.Printf("dvbservices csv: read %d rows, added %d entries", rows, added)
	return added, db.Len(), nil
}

// LoadLyngsatJSON parses a community lyngsat/kingofsat JSON export.
// Expected: array of objects with any of: onid, tsid, sid (JSON numbers, or
// strings read as hex with or without "0x"), name, network_name, country,
// language, tvg_id, call_sign.
func LoadLyngsatJSON(db *DB, path string) (added, total int, err error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return 0, 0, err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, 0, fmt.Errorf("lyngsat json: parse: %w", err)
	}

	parseHexField := func(m map[string]interface{}, key string) uint16 {
		v, ok := m[key]
		if !ok {
			return 0
		}
		switch x := v.(type) {
		case float64:
			return uint16(x)
		case string:
			x = strings.TrimPrefix(strings.TrimSpace(x), "0x")
			x = strings.TrimPrefix(x, "0X")
			n, _ := strconv.ParseUint(x, 16, 32)
			return uint16(n)
		}
		return 0
	}
	strField := func(m map[string]interface{}, keys ...string) string {
		for _, k := range keys {
			if v, ok := m[k]; ok {
				if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		}
		return ""
	}

	before := db.Len()
	for _, raw := range rows {
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		name := strField(m, "name", "service_name")
		onid := parseHexField(m, "onid")
		tsid := parseHexField(m, "tsid")
		sid := parseHexField(m, "sid")
		if onid == 0 && name == "" {
			continue
		}
		db.upsert(Entry{
			OriginalNetworkID: onid,
			TransportStreamID: tsid,
			ServiceID:         sid,
			Name:              name,
			NetworkName:       strField(m, "network_name", "network"),
			Country:           strings.ToUpper(strField(m, "country")),
			Language:          strings.ToLower(strField(m, "language")),
			TVGID:             strField(m, "tvg_id", "xmltv_id"),
			CallSign:          strField(m, "call_sign", "callsign"),
		})
	}
	db.buildIndices()
	added = db.Len() - before
	log.Printf("lyngsat json: %d rows → added %d entries", len(rows), added)
	return added, db.Len(), nil
}
