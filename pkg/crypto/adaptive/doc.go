// Package adaptive provides the AEAD cipher used to seal snapshot
// files at rest.
//
// It selects the algorithm by hardware capability:
//
//   - AES-256-GCM when hardware AES support is available
//   - ChaCha20-Poly1305 otherwise
//
// Usage:
//
//	c, err := adaptive.New(key)
//	sealed, err := c.Encrypt(plaintext, aad)
//	plain, err := c.Decrypt(sealed, aad)
//
// All cipher operations are safe for concurrent use.
package adaptive
