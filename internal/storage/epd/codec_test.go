package epd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/yndnr/rolegate/internal/core/domain"
	"github.com/yndnr/rolegate/pkg/crypto/adaptive"
)

func sampleRecords() []domain.ActivityRecord {
	return []domain.ActivityRecord{
		{GuildID: 9, UserID: 1001, MessageCount: 12, LastCountedAt: 241_215, Granted: false},
		{GuildID: 9, UserID: 7, MessageCount: 60, LastCountedAt: 300_000, Granted: true},
		{GuildID: 3, UserID: 500, MessageCount: 1, LastCountedAt: 1, Granted: false},
	}
}

func TestRoundTrip(t *testing.T) {
	c := New()

	in := sampleRecords()
	data, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	out, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}

	byKey := make(map[domain.MemberKey]domain.ActivityRecord)
	for _, r := range out {
		byKey[r.Key()] = r
	}
	for _, want := range in {
		got, ok := byKey[want.Key()]
		if !ok {
			t.Fatalf("record %+v missing after round trip", want.Key())
		}
		if got != want {
			t.Errorf("record = %+v, want %+v", got, want)
		}
	}
}

func TestRoundTripEmpty(t *testing.T) {
	c := New()

	data, err := c.Encode(nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("len = %d, want 0", len(out))
	}
}

func TestEncodeDeterministic(t *testing.T) {
	c := New()

	a, err := c.Encode(sampleRecords())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Same set, different order.
	reversed := sampleRecords()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	b, err := c.Encode(reversed)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if !bytes.Equal(a, b) {
		t.Error("encoding is not deterministic across input order")
	}
}

func TestDecodeBadMagic(t *testing.T) {
	c := New()
	data, _ := c.Encode(sampleRecords())
	data[0] ^= 0xFF

	if _, err := c.Decode(data); !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("err = %v, want ErrInvalidMagic", err)
	}
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	c := New()
	data, _ := c.Encode(sampleRecords())
	binary.LittleEndian.PutUint32(data[8:12], 99)
	// Fix up the checksum so only the version is wrong.
	data = reseal(data)

	if _, err := c.Decode(data); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("err = %v, want ErrUnsupportedVersion", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	c := New()
	data, _ := c.Encode(sampleRecords())

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"header only", data[:headerSize]},
		{"mid record", data[:headerSize+recordSize/2]},
		{"missing checksum", data[:len(data)-1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := c.Decode(tt.data)
			if err == nil {
				t.Fatal("Decode succeeded on truncated input")
			}
			if !IsFormatError(err) {
				t.Errorf("err = %v, want a format error", err)
			}
			if recs != nil {
				t.Error("Decode returned records alongside an error")
			}
		})
	}
}

func TestDecodeChecksumCorruption(t *testing.T) {
	c := New()
	data, _ := c.Encode(sampleRecords())

	// Flipping any single byte of the checksum region must fail the
	// decode; no partial record set may escape.
	for i := len(data) - checksumSize; i < len(data); i++ {
		corrupted := bytes.Clone(data)
		corrupted[i] ^= 0x01

		recs, err := c.Decode(corrupted)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("byte %d: err = %v, want ErrChecksumMismatch", i, err)
		}
		if recs != nil {
			t.Fatalf("byte %d: returned records on corrupt input", i)
		}
	}
}

func TestDecodeBodyCorruption(t *testing.T) {
	c := New()
	data, _ := c.Encode(sampleRecords())

	corrupted := bytes.Clone(data)
	corrupted[headerSize+5] ^= 0x40

	if _, err := c.Decode(corrupted); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("err = %v, want ErrChecksumMismatch", err)
	}
}

func TestSealedRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	cipher, err := adaptive.New(key)
	if err != nil {
		t.Fatalf("adaptive.New: %v", err)
	}

	c := New(WithCipher(cipher))
	in := sampleRecords()

	data, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	out, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}

	// The plaintext record bytes must not appear in the sealed image.
	plain, _ := New().Encode(in)
	if bytes.Contains(data, plain[headerSize:headerSize+recordSize]) {
		t.Error("sealed snapshot leaks plaintext records")
	}
}

func TestSealedRequiresKey(t *testing.T) {
	key := make([]byte, 32)
	cipher, err := adaptive.New(key)
	if err != nil {
		t.Fatalf("adaptive.New: %v", err)
	}

	data, err := New(WithCipher(cipher)).Encode(sampleRecords())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if _, err := New().Decode(data); !errors.Is(err, ErrKeyRequired) {
		t.Errorf("err = %v, want ErrKeyRequired", err)
	}
}

func TestSealedWrongKey(t *testing.T) {
	k1 := make([]byte, 32)
	k2 := make([]byte, 32)
	k2[0] = 1

	c1, err := adaptive.New(k1)
	if err != nil {
		t.Fatalf("adaptive.New: %v", err)
	}
	c2, err := adaptive.New(k2)
	if err != nil {
		t.Fatalf("adaptive.New: %v", err)
	}

	data, err := New(WithCipher(c1)).Encode(sampleRecords())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if _, err := New(WithCipher(c2)).Decode(data); !errors.Is(err, ErrSealOpen) {
		t.Errorf("err = %v, want ErrSealOpen", err)
	}
}

// reseal recomputes the trailing checksum after a deliberate header edit.
func reseal(data []byte) []byte {
	payload := data[:len(data)-checksumSize]
	out := bytes.Clone(payload)
	h := fnvSum(payload)
	var sum [checksumSize]byte
	binary.LittleEndian.PutUint64(sum[:], h)
	return append(out, sum[:]...)
}

func fnvSum(data []byte) uint64 {
	const offsetBasis = 14695981039346656037
	const prime = 1099511628211
	h := uint64(offsetBasis)
	for _, b := range data {
		h ^= uint64(b)
		h *= prime
	}
	return h
}
