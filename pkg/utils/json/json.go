// Package json wraps sonic for the hot encode/decode paths (relay events,
// stored documents) and falls back to encoding/json where sonic has no JIT.
package json

import (
	stdjson "encoding/json"
	"runtime"

	"github.com/bytedance/sonic"
)

// RawMessage is a raw encoded JSON value.
type RawMessage = stdjson.RawMessage

var (
	// Marshal encodes v into JSON bytes.
	Marshal func(v interface{}) ([]byte, error)

	// Unmarshal decodes JSON bytes into v.
	Unmarshal func(data []byte, v interface{}) error

	usingSonic bool
)

func init() {
	// sonic 只支持 amd64 和 arm64
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		Marshal = sonic.ConfigStd.Marshal
		Unmarshal = sonic.ConfigStd.Unmarshal
		usingSonic = true
		return
	}
	Marshal = stdjson.Marshal
	Unmarshal = stdjson.Unmarshal
}

// MarshalString encodes v and returns it as a string.
func MarshalString(v interface{}) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalString decodes s into v.
func UnmarshalString(s string, v interface{}) error {
	return Unmarshal([]byte(s), v)
}

// IsUsingSonic reports whether sonic backs this package.
func IsUsingSonic() bool {
	return usingSonic
}
