package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Wire format: CBOR serialization of encoded programs
// ---------------------------------------------------------------------------

// WireVersion is the current serialization format version. Decoding
// rejects any other version.
const WireVersion = 1

// cborEncMode uses canonical encoding so identical programs always
// serialize to identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wireProgram is the serialized shape of a Program.
type wireProgram struct {
	Version int    `cbor:"v"`
	Code    []Inst `cbor:"code"`
}

// MarshalProgram serializes a program to CBOR bytes.
func MarshalProgram(p *Program) ([]byte, error) {
	return cborEncMode.Marshal(&wireProgram{Version: WireVersion, Code: p.Code})
}

// UnmarshalProgram deserializes a program from CBOR bytes.
func UnmarshalProgram(data []byte) (*Program, error) {
	var w wireProgram
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("vm: unmarshal program: %w", err)
	}
	if w.Version != WireVersion {
		return nil, fmt.Errorf("vm: unsupported program version %d", w.Version)
	}
	return &Program{Code: w.Code}, nil
}
