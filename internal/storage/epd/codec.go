package epd

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"sort"

	"github.com/yndnr/rolegate/internal/core/domain"
	"github.com/yndnr/rolegate/pkg/crypto/adaptive"
)

// File format constants. All integers are little-endian.
const (
	// Magic identifies .epd files. Inherited from format version 1.
	Magic uint64 = 0x7f8f58a6b9441e85

	// Version is the current format version.
	Version uint32 = 2

	// DefaultFileExtension is the snapshot file extension.
	DefaultFileExtension = ".epd"

	// headerSize is magic (8) + version (4) + flags (4) + count (8).
	headerSize = 24

	// recordSize is the fixed stride of one encoded record:
	// guild (8) + user (8) + count (8) + last-counted-at (8) + flags (8).
	recordSize = 40

	// checksumSize is the trailing FNV-1a 64 checksum.
	checksumSize = 8
)

// Header flag bits.
const (
	// flagSealed marks a record region encrypted with an AEAD cipher.
	flagSealed uint32 = 1 << 0
)

// Record flag bits.
const (
	recGranted uint64 = 1 << 0
)

// Errors for snapshot decoding. All of them classify as format errors:
// decoding is all-or-nothing and a failed decode never yields records.
var (
	ErrInvalidMagic       = errors.New("epd: invalid magic")
	ErrUnsupportedVersion = errors.New("epd: unsupported format version")
	ErrTruncated          = errors.New("epd: truncated snapshot")
	ErrChecksumMismatch   = errors.New("epd: checksum mismatch")
	ErrKeyRequired        = errors.New("epd: sealed snapshot requires a key")
	ErrSealOpen           = errors.New("epd: cannot open sealed record region")
)

// IsFormatError reports whether err means the snapshot bytes are
// unreadable. Callers treat such files as "no prior state".
func IsFormatError(err error) bool {
	return errors.Is(err, ErrInvalidMagic) ||
		errors.Is(err, ErrUnsupportedVersion) ||
		errors.Is(err, ErrTruncated) ||
		errors.Is(err, ErrChecksumMismatch) ||
		errors.Is(err, ErrKeyRequired) ||
		errors.Is(err, ErrSealOpen)
}

// Codec encodes and decodes activity record sets to and from the .epd
// binary format. It performs no I/O.
type Codec struct {
	cipher adaptive.Cipher
}

// Option configures a Codec.
type Option func(*Codec)

// WithCipher seals the record region with the given AEAD cipher.
// The header and checksum stay in the clear so corruption is still
// detected before any decryption is attempted.
func WithCipher(c adaptive.Cipher) Option {
	return func(cd *Codec) {
		cd.cipher = c
	}
}

// New creates a new codec.
func New(opts ...Option) *Codec {
	c := &Codec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode serializes records into a complete .epd byte image.
//
// Records are sorted by (guild, user) first, so in plaintext mode
// encoding the same set twice yields byte-identical output. In sealed
// mode the AEAD nonce is random and the output differs between calls.
func (c *Codec) Encode(records []domain.ActivityRecord) ([]byte, error) {
	sorted := make([]domain.ActivityRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].GuildID != sorted[j].GuildID {
			return sorted[i].GuildID < sorted[j].GuildID
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	var flags uint32
	if c.cipher != nil {
		flags |= flagSealed
	}

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint64(header[0:8], Magic)
	binary.LittleEndian.PutUint32(header[8:12], Version)
	binary.LittleEndian.PutUint32(header[12:16], flags)
	binary.LittleEndian.PutUint64(header[16:24], uint64(len(sorted)))

	body := make([]byte, 0, len(sorted)*recordSize)
	var rec [recordSize]byte
	for _, r := range sorted {
		binary.LittleEndian.PutUint64(rec[0:8], r.GuildID)
		binary.LittleEndian.PutUint64(rec[8:16], r.UserID)
		binary.LittleEndian.PutUint64(rec[16:24], r.MessageCount)
		binary.LittleEndian.PutUint64(rec[24:32], uint64(r.LastCountedAt))
		var rf uint64
		if r.Granted {
			rf |= recGranted
		}
		binary.LittleEndian.PutUint64(rec[32:40], rf)
		body = append(body, rec[:]...)
	}

	if c.cipher != nil {
		// The header is bound as additional data so a sealed body
		// cannot be spliced under a different header.
		sealed, err := c.cipher.Encrypt(body, header)
		if err != nil {
			return nil, err
		}
		body = sealed
	}

	out := make([]byte, 0, headerSize+len(body)+checksumSize)
	out = append(out, header...)
	out = append(out, body...)

	h := fnv.New64a()
	h.Write(out)
	var sum [checksumSize]byte
	binary.LittleEndian.PutUint64(sum[:], h.Sum64())
	out = append(out, sum[:]...)

	return out, nil
}

// Decode parses a complete .epd byte image. It validates the magic,
// version, checksum, and record-region length before returning any
// record; a failure never yields a partial record set.
func (c *Codec) Decode(data []byte) ([]domain.ActivityRecord, error) {
	if len(data) < headerSize+checksumSize {
		return nil, ErrTruncated
	}

	header := data[:headerSize]
	if binary.LittleEndian.Uint64(header[0:8]) != Magic {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(header[8:12]); v != Version {
		return nil, ErrUnsupportedVersion
	}
	flags := binary.LittleEndian.Uint32(header[12:16])
	count := binary.LittleEndian.Uint64(header[16:24])

	payload := data[:len(data)-checksumSize]
	want := binary.LittleEndian.Uint64(data[len(data)-checksumSize:])
	h := fnv.New64a()
	h.Write(payload)
	if h.Sum64() != want {
		return nil, ErrChecksumMismatch
	}

	body := payload[headerSize:]
	if flags&flagSealed != 0 {
		if c.cipher == nil {
			return nil, ErrKeyRequired
		}
		plain, err := c.cipher.Decrypt(body, header)
		if err != nil {
			return nil, ErrSealOpen
		}
		body = plain
	}

	// Division avoids overflow on a hostile count value.
	if uint64(len(body))%recordSize != 0 || uint64(len(body))/recordSize != count {
		return nil, ErrTruncated
	}

	records := make([]domain.ActivityRecord, 0, count)
	for i := uint64(0); i < count; i++ {
		rec := body[i*recordSize : (i+1)*recordSize]
		rf := binary.LittleEndian.Uint64(rec[32:40])
		records = append(records, domain.ActivityRecord{
			GuildID:       binary.LittleEndian.Uint64(rec[0:8]),
			UserID:        binary.LittleEndian.Uint64(rec[8:16]),
			MessageCount:  binary.LittleEndian.Uint64(rec[16:24]),
			LastCountedAt: int64(binary.LittleEndian.Uint64(rec[24:32])),
			Granted:       rf&recGranted != 0,
		})
	}

	return records, nil
}
