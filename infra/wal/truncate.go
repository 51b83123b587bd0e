package wal

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// TruncateBefore deletes whole segments whose records are all covered
// by a snapshot at seq. The current segment is never deleted.
func (w *WAL) TruncateBefore(seq uint64) error {
	files, err := filepath.Glob(filepath.Join(w.dir, "segment-*.wal"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	current := w.current.file.Name()
	for _, path := range files {
		if path == current {
			continue
		}
		max, err := maxSeqInSegment(path)
		if err != nil {
			return err
		}
		if max > 0 && max <= seq {
			if err := os.Remove(path); err != nil {
				return err
			}
		}
	}
	return nil
}

// maxSeqInSegment scans one segment and returns the highest sequence
// it contains. Only used for snapshot-based truncation.
func maxSeqInSegment(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var max uint64
	for {
		header := make([]byte, 21)
		if _, err := io.ReadFull(f, header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return max, nil
			}
			return max, err
		}

		seq := binary.BigEndian.Uint64(header[1:9])
		if seq > max {
			max = seq
		}

		payloadLen := binary.BigEndian.Uint32(header[17:21])
		if _, err := f.Seek(int64(payloadLen+4), io.SeekCurrent); err != nil {
			return max, err
		}
	}
}
