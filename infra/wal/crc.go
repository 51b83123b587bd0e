package wal

import "hash/crc32"

func CRC32(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

func CRC32Valid(b []byte, want uint32) bool {
	return crc32.ChecksumIEEE(b) == want
}
