package ton

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashFromHex(t *testing.T, s string) [HashLen]byte {
	t.Helper()
	raw, err := hex.DecodeString(s)
	require.NoError(t, err)
	require.Len(t, raw, HashLen)
	var h [HashLen]byte
	copy(h[:], raw)
	return h
}

func TestParseAddress_FriendlyBounceable(t *testing.T) {
	addr, err := ParseAddress("EQABAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4fIP8B")
	require.NoError(t, err)

	assert.Equal(t, int8(0), addr.Workchain())
	assert.Equal(t, hashFromHex(t, "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"), addr.Hash())
}

func TestParseAddress_NonBounceableNormalizesToSameAccount(t *testing.T) {
	bounceable, err := ParseAddress("EQABAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4fIP8B")
	require.NoError(t, err)
	nonBounceable, err := ParseAddress("UQABAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4fIKLE")
	require.NoError(t, err)

	assert.Equal(t, bounceable, nonBounceable)
	assert.Equal(t, bounceable.String(), nonBounceable.String())
}

func TestParseAddress_BothBase64AlphabetsAgree(t *testing.T) {
	std, err := ParseAddress("EQAnoK6z/ukjL4ryIR+e5JHFsQvstVY7/B5vk0J+y8j+Kfaz")
	require.NoError(t, err)
	urlSafe, err := ParseAddress("EQAnoK6z_ukjL4ryIR-e5JHFsQvstVY7_B5vk0J-y8j-Kfaz")
	require.NoError(t, err)

	assert.Equal(t, std, urlSafe)
	assert.Equal(t, hashFromHex(t, "27a0aeb3fee9232f8af2211f9ee491c5b10becb5563bfc1e6f93427ecbc8fe29"), std.Hash())
}

func TestParseAddress_TestnetFlagAccepted(t *testing.T) {
	testnet, err := ParseAddress("kQABAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4fIESL")
	require.NoError(t, err)
	mainnet, err := ParseAddress("EQABAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4fIP8B")
	require.NoError(t, err)

	assert.Equal(t, mainnet, testnet)
}

func TestParseAddress_Masterchain(t *testing.T) {
	addr, err := ParseAddress("Ef8BAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4fIABJ")
	require.NoError(t, err)

	assert.Equal(t, int8(-1), addr.Workchain())
}

func TestParseAddress_RawForm(t *testing.T) {
	addr, err := ParseAddress("0:0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")
	require.NoError(t, err)

	assert.Equal(t, "EQABAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4fIP8B", addr.String())
	assert.Equal(t, "0:0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20", addr.StringRaw())
}

func TestParseAddress_RoundTrip(t *testing.T) {
	hashes := []string{
		"0000000000000000000000000000000000000000000000000000000000000000",
		"0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20",
		"27a0aeb3fee9232f8af2211f9ee491c5b10becb5563bfc1e6f93427ecbc8fe29",
		"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff",
	}
	for _, wc := range []int8{-1, 0} {
		for _, h := range hashes {
			orig, err := NewAddress(wc, hashFromHex(t, h))
			require.NoError(t, err)

			decoded, err := ParseAddress(orig.String())
			require.NoError(t, err, "friendly round trip for %d:%s", wc, h)
			assert.Equal(t, orig, decoded)

			decoded, err = ParseAddress(orig.StringRaw())
			require.NoError(t, err, "raw round trip for %d:%s", wc, h)
			assert.Equal(t, orig, decoded)
		}
	}
}

func TestParseAddress_Rejections(t *testing.T) {
	cases := map[string]string{
		"empty":              "",
		"truncated friendly": "EQABAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4f",
		"bad checksum":       "EQABAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4fIP8C",
		"bad base64":         "EQ!BAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4fIP8B",
		"unknown tag":        "IQABAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4fIAqK",
		"friendly workchain": "EQUBAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4fIGXv",
		"short raw hash":     "0:0102",
		"bad raw hex":        "0:zz02030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20",
		"bad raw workchain":  "x:0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20",
		"workchain range":    "7:0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAddress(input)
			assert.ErrorIs(t, err, ErrMalformedAddress)
		})
	}
}

func TestNewAddress_UnsupportedWorkchain(t *testing.T) {
	_, err := NewAddress(3, [HashLen]byte{})
	assert.ErrorIs(t, err, ErrMalformedAddress)
}

func TestAddress_IsZero(t *testing.T) {
	assert.True(t, Address{}.IsZero())

	addr := MustParseAddress("EQABAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4fIP8B")
	assert.False(t, addr.IsZero())

	zero, err := ParseAddress("EQAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAM9c")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}
