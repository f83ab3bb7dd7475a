// Package ton implements the account address codec used by the verifier.
//
// Two textual encodings are accepted: the user-friendly base64 form
// (standard or URL-safe alphabet, bounceable or non-bounceable tag,
// optional testnet flag) and the raw "workchain:hex" form. Every decoded
// address is normalized to a single canonical value so two spellings of
// the same account can never diverge downstream.
package ton

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedAddress is returned for any input that does not decode to a
// valid (workchain, 32-byte hash) pair.
var ErrMalformedAddress = errors.New("malformed address")

// Friendly-form tag bytes.
const (
	tagBounceable    = 0x11
	tagNonBounceable = 0x51
	flagTestnet      = 0x80
)

// HashLen is the account hash length in bytes.
const HashLen = 32

// friendlyLen is the base64-encoded length of the 36-byte friendly form.
const friendlyLen = 48

// Address is a validated ledger account address: a workchain and a
// 32-byte account hash. The zero value is the basechain null address.
type Address struct {
	workchain int8
	hash      [HashLen]byte
}

// NewAddress builds an address from its components. Only the masterchain
// (-1) and the basechain (0) are supported.
func NewAddress(workchain int8, hash [HashLen]byte) (Address, error) {
	if workchain != 0 && workchain != -1 {
		return Address{}, fmt.Errorf("%w: unsupported workchain %d", ErrMalformedAddress, workchain)
	}
	return Address{workchain: workchain, hash: hash}, nil
}

// ParseAddress decodes either textual encoding of an address.
func ParseAddress(s string) (Address, error) {
	if strings.ContainsRune(s, ':') {
		return parseRaw(s)
	}
	return parseFriendly(s)
}

func parseRaw(s string) (Address, error) {
	wcStr, hashStr, ok := strings.Cut(s, ":")
	if !ok {
		return Address{}, fmt.Errorf("%w: %q", ErrMalformedAddress, s)
	}
	wc, err := strconv.ParseInt(wcStr, 10, 8)
	if err != nil {
		return Address{}, fmt.Errorf("%w: bad workchain %q", ErrMalformedAddress, wcStr)
	}
	raw, err := hex.DecodeString(hashStr)
	if err != nil || len(raw) != HashLen {
		return Address{}, fmt.Errorf("%w: account hash must be %d hex bytes", ErrMalformedAddress, HashLen)
	}
	var hash [HashLen]byte
	copy(hash[:], raw)
	return NewAddress(int8(wc), hash)
}

func parseFriendly(s string) (Address, error) {
	if len(s) != friendlyLen {
		return Address{}, fmt.Errorf("%w: friendly form must be %d characters, got %d", ErrMalformedAddress, friendlyLen, len(s))
	}

	var data []byte
	var err error
	if strings.ContainsAny(s, "-_") {
		data, err = base64.URLEncoding.DecodeString(s)
	} else {
		data, err = base64.StdEncoding.DecodeString(s)
	}
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrMalformedAddress, err)
	}

	want := crc16(data[:34])
	got := uint16(data[34])<<8 | uint16(data[35])
	if want != got {
		return Address{}, fmt.Errorf("%w: checksum mismatch", ErrMalformedAddress)
	}

	tag := data[0] &^ flagTestnet
	if tag != tagBounceable && tag != tagNonBounceable {
		return Address{}, fmt.Errorf("%w: unknown tag 0x%02x", ErrMalformedAddress, data[0])
	}

	var hash [HashLen]byte
	copy(hash[:], data[2:34])
	return NewAddress(int8(data[1]), hash)
}

// MustParseAddress is ParseAddress for trusted inputs such as test
// fixtures; it panics on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Workchain returns the workchain id.
func (a Address) Workchain() int8 { return a.workchain }

// Hash returns the 32-byte account hash.
func (a Address) Hash() [HashLen]byte { return a.hash }

// IsZero reports whether the account hash is all zeroes. Collections
// return this address for indices that were never minted.
func (a Address) IsZero() bool {
	return a.hash == [HashLen]byte{}
}

// String renders the canonical form: bounceable, mainnet, URL-safe base64.
func (a Address) String() string {
	data := make([]byte, 36)
	data[0] = tagBounceable
	data[1] = byte(a.workchain)
	copy(data[2:34], a.hash[:])
	sum := crc16(data[:34])
	data[34] = byte(sum >> 8)
	data[35] = byte(sum)
	return base64.URLEncoding.EncodeToString(data)
}

// StringRaw renders the "workchain:hex" form.
func (a Address) StringRaw() string {
	return fmt.Sprintf("%d:%s", a.workchain, hex.EncodeToString(a.hash[:]))
}

// crc16 is CRC-16/XMODEM, the checksum used by the friendly form.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
