package toncenter

import (
	"encoding/base64"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/xssnick/tonutils-go/tvm/cell"
)

// Stack value kinds returned by the indexing API.
const (
	KindNum   = "num"
	KindCell  = "cell"
	KindSlice = "slice"
	KindNull  = "null"
)

// Arg is a stack-encoded get-method argument, a [kind, value] pair.
type Arg [2]string

// NumArg encodes an integer argument.
func NumArg(v *big.Int) Arg {
	return Arg{KindNum, v.String()}
}

// StackValue is one tagged value from a get-method result stack.
type StackValue struct {
	Kind string

	raw json.RawMessage
}

// UnmarshalJSON decodes the wire form, a [kind, value] array.
func (v *StackValue) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) == 0 {
		return &DecodeError{Reason: "empty stack entry"}
	}
	if err := json.Unmarshal(parts[0], &v.Kind); err != nil {
		return &DecodeError{Reason: "stack entry kind is not a string"}
	}
	if len(parts) > 1 {
		v.raw = parts[1]
	}
	return nil
}

// IsNull reports a null stack value.
func (v StackValue) IsNull() bool { return v.Kind == KindNull }

// Int decodes a num value. The API emits either 0x-prefixed hex or
// decimal strings.
func (v StackValue) Int() (*big.Int, error) {
	if v.Kind != KindNum {
		return nil, &DecodeError{Reason: "expected num stack value, got " + v.Kind}
	}
	var s string
	if err := json.Unmarshal(v.raw, &s); err != nil {
		return nil, &DecodeError{Reason: "num value is not a string"}
	}
	n := new(big.Int)
	neg := strings.HasPrefix(s, "-")
	digits := strings.TrimPrefix(s, "-")
	base := 10
	if strings.HasPrefix(digits, "0x") {
		digits = digits[2:]
		base = 16
	}
	if _, ok := n.SetString(digits, base); !ok {
		return nil, &DecodeError{Reason: "unparseable num value " + s}
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}

// Cell decodes a cell or slice value from its base64 BOC payload.
func (v StackValue) Cell() (*cell.Cell, error) {
	if v.Kind != KindCell && v.Kind != KindSlice {
		return nil, &DecodeError{Reason: "expected cell stack value, got " + v.Kind}
	}
	var payload struct {
		Bytes string `json:"bytes"`
	}
	if err := json.Unmarshal(v.raw, &payload); err != nil || payload.Bytes == "" {
		return nil, &DecodeError{Reason: "cell stack value carries no bytes"}
	}
	boc, err := base64.StdEncoding.DecodeString(payload.Bytes)
	if err != nil {
		return nil, &DecodeError{Reason: "cell bytes are not valid base64"}
	}
	c, err := cell.FromBOC(boc)
	if err != nil {
		return nil, &DecodeError{Reason: "cell bytes are not a valid BOC: " + err.Error()}
	}
	return c, nil
}

// GetMethodResult is the decoded outcome of a get-method invocation.
type GetMethodResult struct {
	ExitCode int          `json:"exit_code"`
	Stack    []StackValue `json:"stack"`
}

// AccountInfo is the subset of the account-information response the
// verifier consumes. Balance and code fields are deliberately ignored.
type AccountInfo struct {
	State string `json:"state"`
}

type masterchainInfo struct {
	Last struct {
		Seqno uint32 `json:"seqno"`
	} `json:"last"`
}

type runGetMethodRequest struct {
	Address string `json:"address"`
	Method  string `json:"method"`
	Stack   []Arg  `json:"stack"`
	Seqno   uint32 `json:"seqno,omitempty"`
}

type apiEnvelope struct {
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result"`
}
