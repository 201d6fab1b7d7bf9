package collector

import (
	"github.com/lay2dev/chainindex/internal/codec"
	"github.com/lay2dev/chainindex/internal/store"
)

// CellFilter is the Cell Collector's construction input: {lock?, type?,
// data}. At least one of Lock or a non-None Type must be supplied. The
// zero value has a nil Data and so imposes no data constraint;
// DefaultCellFilter returns the documented "0x" default (Data constrained
// to empty).
type CellFilter struct {
	Lock *ScriptFilter
	Type TypeFilter

	// Data, when non-nil, requires the cell's output data to equal *Data
	// exactly byte-for-byte. A nil Data imposes no constraint on data;
	// callers starting from DefaultCellFilter set it to nil to opt out of
	// the empty-data match.
	Data *[]byte
}

// DefaultCellFilter returns a CellFilter with the documented default
// (Data constrained to empty, "0x") and no lock/type constraint; callers
// set Lock and/or Type before use.
func DefaultCellFilter() CellFilter {
	empty := []byte{}
	return CellFilter{Data: &empty}
}

// Cell is the rich record the Cell Collector yields: the cell_output
// triple plus its out_point and block position, matching the external
// collector contract.
type Cell struct {
	Capacity    uint64
	Lock        store.ScriptRow
	Type        *store.ScriptRow
	TxHash      [32]byte
	Index       uint64
	BlockHash   [32]byte
	BlockNumber uint64
	Data        []byte
}

// CellCollector compiles a CellFilter into an ordered SQL scan over live
// cells.
type CellCollector struct {
	store *store.Storage
	scan  store.CellScanFilter
}

// NewCellCollector validates filter and compiles it into a scannable form.
func NewCellCollector(st *store.Storage, filter CellFilter) (*CellCollector, error) {
	if filter.Lock == nil && filter.Type.Kind == TypeNone {
		return nil, &ValidationError{Reason: "at least one of lock or type must be supplied"}
	}

	scan := store.CellScanFilter{}

	if filter.Lock != nil {
		if err := validateScript(filter.Lock.Script); err != nil {
			return nil, &ValidationError{Reason: err.Error()}
		}
		ids, err := resolveScriptIDs(st, *filter.Lock)
		if err != nil {
			return nil, err
		}
		scan.LockScriptIDs = ids
		if scan.LockScriptIDs == nil {
			scan.LockScriptIDs = []int64{}
		}
	}

	switch filter.Type.Kind {
	case TypeEmpty:
		scan.RequireNoType = true
	case TypeScript:
		if err := validateScript(filter.Type.Script); err != nil {
			return nil, &ValidationError{Reason: err.Error()}
		}
		ids, err := resolveScriptIDs(st, ScriptFilter{Script: filter.Type.Script, ArgsLen: filter.Type.ArgsLen})
		if err != nil {
			return nil, err
		}
		scan.TypeScriptIDs = ids
		if scan.TypeScriptIDs == nil {
			scan.TypeScriptIDs = []int64{}
		}
	}

	if filter.Data != nil {
		scan.HasData = true
		scan.Data = *filter.Data
	}

	return &CellCollector{store: st, scan: scan}, nil
}

// resolveScriptIDs turns a (code_hash, hash_type, args-prefix, argsLen)
// constraint into the concrete set of interned script ids it matches.
func resolveScriptIDs(st *store.Storage, f ScriptFilter) ([]int64, error) {
	return st.FindScriptIDs(f.Script.CodeHash, byte(f.Script.HashType), func(args []byte) bool {
		if !codec.HasPrefix(args, f.Script.Args) {
			return false
		}
		if f.ArgsLen > 0 && len(args) != f.ArgsLen {
			return false
		}
		return true
	})
}

// Count returns the number of live cells matching the filter, with no
// ordering, mirroring the collector's count() operation.
func (c *CellCollector) Count() (int64, error) {
	return c.store.CountLiveCells(c.scan)
}

// Collect streams matching cells in (block_number, tx_index, index) order
// to fn, stopping early if fn returns false. Script rows are resolved and
// memoized per query so a repeated type_script_id is only fetched once.
func (c *CellCollector) Collect(fn func(Cell) (bool, error)) error {
	lockCache := map[int64]store.ScriptRow{}
	typeCache := map[int64]store.ScriptRow{}
	blockHashCache := map[uint64][32]byte{}

	return c.store.ScanLiveCells(c.scan, func(row store.Cell) (bool, error) {
		blockHash, ok := blockHashCache[row.BlockNumber]
		if !ok {
			d, err := c.store.GetBlockDigest(row.BlockNumber)
			if err != nil {
				return false, err
			}
			if d != nil {
				blockHash = d.BlockHash
				blockHashCache[row.BlockNumber] = blockHash
			}
		}

		lock, ok := lockCache[row.LockScriptID]
		if !ok {
			r, err := c.store.GetScriptByID(row.LockScriptID)
			if err != nil {
				return false, err
			}
			if r != nil {
				lock = *r
				lockCache[row.LockScriptID] = lock
			}
		}

		var typ *store.ScriptRow
		if row.TypeScriptID != nil {
			cached, ok := typeCache[*row.TypeScriptID]
			if !ok {
				r, err := c.store.GetScriptByID(*row.TypeScriptID)
				if err != nil {
					return false, err
				}
				if r != nil {
					cached = *r
					typeCache[*row.TypeScriptID] = cached
				}
			}
			typ = &cached
		}

		return fn(Cell{
			Capacity:    row.Capacity,
			Lock:        lock,
			Type:        typ,
			TxHash:      row.TxHash,
			Index:       row.Index,
			BlockHash:   blockHash,
			BlockNumber: row.BlockNumber,
			Data:        row.Data,
		})
	})
}
