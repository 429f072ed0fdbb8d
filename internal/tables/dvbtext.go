package tables

// DecodeDVBString converts a DVB character-table-encoded byte string (as
// carried in an SDT service_descriptor's service_name/provider_name, or an
// EIT short_event_descriptor) into a UTF-8 string. Covers the common-case
// Latin-1/ISO 8859-1 encoding; strips multi-byte charset-table prefixes
// (0x10 xx xx) and single-byte ones (< 0x20).
func DecodeDVBString(d []byte) string {
	if len(d) == 0 {
		return ""
	}
	if d[0] == 0x10 {
		if len(d) > 3 {
			d = d[3:]
		} else {
			d = nil
		}
	} else if d[0] < 0x20 {
		d = d[1:]
	}
	r := make([]rune, 0, len(d))
	for _, b := range d {
		if b >= 0x80 && b <= 0x9F {
			continue // DVB control characters
		}
		r = append(r, rune(b))
	}
	return string(r)
}
