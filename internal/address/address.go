// Package address handles base58 account addresses and deterministic
// sub-account derivation for scoping per-resource state.
package address

import (
	"crypto/sha256"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"ticket-settlement-lab/internal/domain"
)

// Validate checks that addr is base58 text decoding to exactly 32 bytes.
func Validate(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return domain.ErrInvalidInput
	}
	if len(raw) != 32 {
		return domain.ErrInvalidInput
	}
	return nil
}

// Decode returns the 32 raw bytes of a base58 address.
func Decode(addr string) ([]byte, error) {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != 32 {
		return nil, domain.ErrInvalidInput
	}
	return raw, nil
}

// Encode returns the base58 text of 32 raw address bytes.
func Encode(raw []byte) string {
	return base58.Encode(raw)
}

// Derive computes a deterministic sub-account address from a fixed seed plus
// context keys. It hashes seed|keys|bump and searches bumps downward until the
// resulting point is off the ed25519 curve, so the derived address can never
// collide with a holder-controlled key.
func Derive(seed string, keys ...string) string {
	for bump := 255; bump >= 0; bump-- {
		data := []byte(seed)
		for _, key := range keys {
			data = append(data, key...)
		}
		data = append(data, byte(bump))

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
