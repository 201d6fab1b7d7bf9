// Package collector compiles script/data filters into deterministic ordered
// scans over the store: the Cell Collector for live UTXOs, and the
// Transaction Collector for transactions referencing a script slot.
package collector

import (
	"fmt"

	"github.com/lay2dev/chainindex/internal/script"
)

// ValidationError reports a caller-supplied filter that doesn't satisfy
// construction-time shape requirements.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("collector: %s", e.Reason) }

// TypeKind tags how the "type" filter parameter was supplied: absent, the
// "empty" sentinel, or a concrete script.
type TypeKind int

const (
	TypeNone TypeKind = iota
	TypeEmpty
	TypeScript
)

// TypeFilter is the tagged variant {None, Empty, Script(value)} the type
// filter parameter takes. When Kind is TypeScript, ArgsLen constrains the
// stored args' length the same way ScriptFilter.ArgsLen does for locks.
type TypeFilter struct {
	Kind    TypeKind
	Script  script.Script
	ArgsLen int
}

// NoType constructs a TypeFilter that imposes no constraint.
func NoType() TypeFilter { return TypeFilter{Kind: TypeNone} }

// EmptyType constructs a TypeFilter requiring the cell to carry no type script.
func EmptyType() TypeFilter { return TypeFilter{Kind: TypeEmpty} }

// WithType constructs a TypeFilter requiring a matching type script, with
// an unconstrained args length.
func WithType(s script.Script) TypeFilter {
	return TypeFilter{Kind: TypeScript, Script: s, ArgsLen: -1}
}

// ScriptFilter is a (script, argsLen) pair used for a lock or type
// constraint: the stored script must match (code_hash, hash_type) exactly
// and its args must start with the filter's args (prefix match); if
// ArgsLen > 0 the stored args' length must equal it exactly.
type ScriptFilter struct {
	Script  script.Script
	ArgsLen int // -1 means unconstrained length
}

func validateScript(s script.Script) error {
	return script.Validate(s.CodeHash[:], s.Args)
}
