// Package lcn implements the logical-channel-number side file: a flat,
// fixed-record file of namespace:onid:tsid:sid:lcn:signal rows, one per
// known logical channel assignment, written alongside the channel database.
package lcn

import (
	"fmt"
	"os"
)

// recordSize is the fixed width of one row, including its trailing newline:
// "%08x:%04x:%04x:%04x:%05d:%08d\n" is always exactly 39 bytes.
const recordSize = 39

// keySize is the width of the namespace:onid:tsid:sid key prefix that
// identifies a record for overwrite-in-place purposes; it excludes the lcn
// and signal fields, which are the only fields a later scan may revise.
const keySize = 23

// Writer appends or updates logical-channel-number records in a fixed-record
// file, matching the Enigma2 lamedb.lcn convention.
type Writer struct {
	f *os.File
}

// Open opens (creating if necessary) the LCN file at path. It validates that
// the existing file size is a multiple of recordSize rather than silently
// truncating or skipping malformed tails.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("lcn: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("lcn: stat %s: %w", path, err)
	}
	if info.Size()%recordSize != 0 {
		f.Close()
		return nil, fmt.Errorf("lcn: %s size %d is not a multiple of the %d-byte record size", path, info.Size(), recordSize)
	}
	return &Writer{f: f}, nil
}

// Close closes the underlying file.
func (w *Writer) Close() error { return w.f.Close() }

// Add writes or replaces the logical-channel-number record for (ns, onid,
// tsid, sid). An existing record with the same key (namespace, onid, tsid,
// service id) is overwritten in place; otherwise the record is appended.
func (w *Writer) Add(ns uint32, onid, tsid, sid uint16, logicalChannel uint16, signal int) error {
	row := []byte(fmt.Sprintf("%08x:%04x:%04x:%04x:%05d:%08d\n", ns, onid, tsid, sid, logicalChannel, signal))
	if len(row) != recordSize {
		return fmt.Errorf("lcn: formatted record is %d bytes, want %d (lcn=%d or signal=%d out of range)", len(row), recordSize, logicalChannel, signal)
	}

	info, err := w.f.Stat()
	if err != nil {
		return fmt.Errorf("lcn: stat: %w", err)
	}
	count := info.Size() / recordSize

	buf := make([]byte, keySize)
	for i := int64(0); i < count; i++ {
		if _, err := w.f.ReadAt(buf, i*recordSize); err != nil {
			return fmt.Errorf("lcn: read record %d: %w", i, err)
		}
		if string(buf) == string(row[:keySize]) {
			if _, err := w.f.WriteAt(row, i*recordSize); err != nil {
				return fmt.Errorf("lcn: overwrite record %d: %w", i, err)
			}
			return nil
		}
	}

	if _, err := w.f.WriteAt(row, count*recordSize); err != nil {
		return fmt.Errorf("lcn: append record: %w", err)
	}
	return nil
}
