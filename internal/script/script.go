// Package script defines the Script value type and interns scripts into the
// store, deduplicating by the (code_hash, hash_type, args) tuple and
// returning stable small integer identifiers; the content hash is stored
// alongside each row.
package script

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// HashType classifies how a script's code_hash should be interpreted.
type HashType uint8

const (
	HashTypeData HashType = 0
	HashTypeType HashType = 1
)

// String renders the wire name for a hash type.
func (h HashType) String() string {
	switch h {
	case HashTypeData:
		return "data"
	case HashTypeType:
		return "type"
	default:
		return "unknown"
	}
}

// ParseHashType parses the wire name ("data" or "type") into a HashType.
func ParseHashType(s string) (HashType, error) {
	switch s {
	case "data":
		return HashTypeData, nil
	case "type":
		return HashTypeType, nil
	default:
		return 0, fmt.Errorf("script: invalid hash_type %q", s)
	}
}

// Script is the (code_hash, hash_type, args) tuple that classifies a cell's
// lock or type slot.
type Script struct {
	CodeHash [32]byte
	HashType HashType
	Args     []byte
}

// hashPersonalization is the blake2b personalization used to derive a
// script's content hash. The canonical encoding only needs to be
// deterministic and collision-resistant across distinct
// (code_hash, hash_type, args) tuples.
var hashPersonalization = [16]byte{'c', 'k', 'b', '-', 'd', 'e', 'f', 'a', 'u', 'l', 't', '-', 'h', 'a', 's', 'h'}

// Hash computes the script's content hash: blake2b-256, personalized, over
// the canonical serialization code_hash || hash_type || len(args) || args.
func (s Script) Hash() [32]byte {
	h, err := blake2b.New(32, nil)
	if err != nil {
		panic(fmt.Sprintf("script: blake2b init: %v", err))
	}
	// blake2b.New with a 16-byte key slot reserved for personalization is
	// not exposed by the stdlib-style constructor, so we fold the
	// personalization into the preimage instead of the hash state.
	h.Write(hashPersonalization[:])
	h.Write(s.CodeHash[:])
	h.Write([]byte{byte(s.HashType)})
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s.Args)))
	h.Write(lenBuf[:])
	h.Write(s.Args)

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Validate checks the shape required by collector filters: code_hash must
// be 32 bytes and args must be a valid byte string (any length, including
// zero). HashType is already constrained by its own type once parsed.
func Validate(codeHash []byte, args []byte) error {
	if len(codeHash) != 32 {
		return fmt.Errorf("script: code_hash must be 32 bytes, got %d", len(codeHash))
	}
	_ = args
	return nil
}
