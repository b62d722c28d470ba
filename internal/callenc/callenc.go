// Package callenc defines the versioned wire encoding for cross-module calls.
// Both the calling module and the receiving module link against this package,
// so the selector and argument layout are agreed at build time instead of
// being hand-copied byte literals. The far side still rejects unknown
// selectors and versions, since a deployed caller may be older.
package callenc

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Version is the current call-encoding version. Bumped on any layout change.
const Version uint8 = 1

const selectorLen = 8

var (
	// ErrUnknownSelector is returned when the payload targets a different entry point.
	ErrUnknownSelector = errors.New("unknown call selector")

	// ErrVersionMismatch is returned when the payload was encoded by an
	// incompatible codec version.
	ErrVersionMismatch = errors.New("call version mismatch")

	// ErrMalformed is returned for truncated or trailing-byte payloads.
	ErrMalformed = errors.New("malformed call payload")
)

// CreateListingSelector identifies the marketplace create_listing entry point.
// Derived from the qualified entry-point name, not hand-written.
var CreateListingSelector = selector("marketplace:create_listing")

func selector(name string) [selectorLen]byte {
	hash := sha256.Sum256([]byte(name))
	var sel [selectorLen]byte
	copy(sel[:], hash[:selectorLen])
	return sel
}

// CreateListingCall is the positional argument layout of a cross-module
// create_listing invocation. OriginalPrice carries the primary ticket price
// forward as the resale price-cap basis.
type CreateListingCall struct {
	Seller        string
	EventID       string
	AssetID       string
	Price         uint64
	OriginalPrice uint64
	ExpiresAt     int64
}

// Encode serializes the call as selector | version | positional fields.
// Strings are length-prefixed (uint16, little endian); integers are fixed
// 8-byte little endian.
func (c *CreateListingCall) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(CreateListingSelector[:])
	buf.WriteByte(Version)

	for _, s := range []string{c.Seller, c.EventID, c.AssetID} {
		if len(s) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: string field too long", ErrMalformed)
		}
		var n [2]byte
		binary.LittleEndian.PutUint16(n[:], uint16(len(s)))
		buf.Write(n[:])
		buf.WriteString(s)
	}

	var u [8]byte
	binary.LittleEndian.PutUint64(u[:], c.Price)
	buf.Write(u[:])
	binary.LittleEndian.PutUint64(u[:], c.OriginalPrice)
	buf.Write(u[:])
	binary.LittleEndian.PutUint64(u[:], uint64(c.ExpiresAt))
	buf.Write(u[:])

	return buf.Bytes(), nil
}

// DecodeCreateListing parses a create_listing payload, rejecting wrong
// selectors, wrong versions, truncation, and trailing bytes.
func DecodeCreateListing(data []byte) (*CreateListingCall, error) {
	if len(data) < selectorLen+1 {
		return nil, ErrMalformed
	}
	if !bytes.Equal(data[:selectorLen], CreateListingSelector[:]) {
		return nil, ErrUnknownSelector
	}
	if data[selectorLen] != Version {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, data[selectorLen], Version)
	}
	rest := data[selectorLen+1:]

	readString := func() (string, error) {
		if len(rest) < 2 {
			return "", ErrMalformed
		}
		n := int(binary.LittleEndian.Uint16(rest[:2]))
		rest = rest[2:]
		if len(rest) < n {
			return "", ErrMalformed
		}
		s := string(rest[:n])
		rest = rest[n:]
		return s, nil
	}
	readUint64 := func() (uint64, error) {
		if len(rest) < 8 {
			return 0, ErrMalformed
		}
		v := binary.LittleEndian.Uint64(rest[:8])
		rest = rest[8:]
		return v, nil
	}

	var call CreateListingCall
	var err error
	if call.Seller, err = readString(); err != nil {
		return nil, err
	}
	if call.EventID, err = readString(); err != nil {
		return nil, err
	}
	if call.AssetID, err = readString(); err != nil {
		return nil, err
	}
	if call.Price, err = readUint64(); err != nil {
		return nil, err
	}
	if call.OriginalPrice, err = readUint64(); err != nil {
		return nil, err
	}
	expires, err := readUint64()
	if err != nil {
		return nil, err
	}
	call.ExpiresAt = int64(expires)

	if len(rest) != 0 {
		return nil, ErrMalformed
	}
	return &call, nil
}
