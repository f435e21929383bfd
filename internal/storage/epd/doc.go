// Package epd implements the .epd snapshot codec.
//
// An .epd ("ephemeral-persistence data") file is the complete,
// versioned, checksummed serialization of the activity tracker at one
// point in time. The layout, all little-endian:
//
//	magic     u64   0x7f8f58a6b9441e85
//	version   u32   current = 2
//	flags     u32   bit 0: record region sealed (AEAD-encrypted)
//	count     u64   number of records
//	records   count × 40 bytes
//	checksum  u64   FNV-1a over everything above
//
// Each record is guild (u64), user (u64), message count (u64),
// last-counted-at (i64, seconds since the platform epoch), and a
// flags word (bit 0: granted).
//
// The codec is pure data transformation: it never touches the
// filesystem. Decoding is all-or-nothing; any malformed input fails
// with a format error before a single record is produced.
package epd
