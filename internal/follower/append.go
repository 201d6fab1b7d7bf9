package follower

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lay2dev/chainindex/internal/codec"
	"github.com/lay2dev/chainindex/internal/rpc"
	"github.com/lay2dev/chainindex/internal/script"
	"github.com/lay2dev/chainindex/internal/store"
)

// append commits one block's worth of transactions, cells, and script
// associations in a single store transaction, then fires the
// newBlockListener callback and schedules a prune if this block lands on
// the prune cadence.
func (f *Follower) append(ctx context.Context, block *rpc.Block) error {
	digest, err := blockDigest(block)
	if err != nil {
		return &StoreError{Op: "decode block header", Cause: err}
	}

	tx, err := f.store.DB().Begin()
	if err != nil {
		return &StoreError{Op: "begin append", Cause: err}
	}
	defer tx.Rollback()

	if err := f.store.InsertBlockDigest(tx, digest); err != nil {
		return &StoreError{Op: "append", Cause: err}
	}

	for txIndex, wireTx := range block.Transactions {
		if err := f.appendTransaction(tx, digest.BlockNumber, uint32(txIndex), wireTx); err != nil {
			return &StoreError{Op: "append transaction", Cause: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Op: "commit append", Cause: err}
	}

	if f.newBlockListener != nil {
		f.newBlockListener(block)
	}

	if f.cfg.PruneInterval > 0 && digest.BlockNumber%f.cfg.PruneInterval == 0 {
		if _, err := f.store.Prune(digest.BlockNumber, f.cfg.KeepNum); err != nil {
			f.log.Error("prune failed", "block", digest.BlockNumber, "error", err)
		}
	}

	return nil
}

func (f *Follower) appendTransaction(tx *sql.Tx, blockNumber uint64, txIndex uint32, wireTx rpc.Transaction) error {
	txHashBytes, err := codec.HexToBytes(wireTx.Hash)
	if err != nil {
		return fmt.Errorf("decode tx hash: %w", err)
	}
	var txHash [32]byte
	copy(txHash[:], txHashBytes)

	digest := store.TransactionDigest{
		TxHash:      txHash,
		TxIndex:     txIndex,
		OutputCount: uint32(len(wireTx.Outputs)),
		BlockNumber: blockNumber,
	}
	txID, err := f.store.InsertTransactionDigest(tx, digest)
	if err != nil {
		return fmt.Errorf("insert transaction digest: %w", err)
	}

	if txIndex > 0 {
		for inputIndex, input := range wireTx.Inputs {
			if err := f.spendInput(tx, txID, uint32(inputIndex), input); err != nil {
				return fmt.Errorf("spend input: %w", err)
			}
		}
	}

	inputs := make([]store.TransactionInput, len(wireTx.Inputs))
	for i, input := range wireTx.Inputs {
		prevHash, err := codec.HexToBytes(input.PreviousOutput.TxHash)
		if err != nil {
			return fmt.Errorf("decode previous tx hash: %w", err)
		}
		prevIndex, err := codec.HexToUint64(input.PreviousOutput.Index)
		if err != nil {
			return fmt.Errorf("decode previous index: %w", err)
		}
		var prevTxHash [32]byte
		copy(prevTxHash[:], prevHash)
		inputs[i] = store.TransactionInput{
			TransactionDigestID: txID,
			PreviousTxHash:      prevTxHash,
			PreviousIndex:       prevIndex,
			InputIndex:          uint64(i),
		}
	}
	if len(inputs) > 0 {
		if err := f.store.InsertTransactionInputs(tx, inputs); err != nil {
			return fmt.Errorf("insert transaction inputs: %w", err)
		}
	}

	for outputIndex, output := range wireTx.Outputs {
		if err := f.appendOutput(tx, txID, txHash, blockNumber, txIndex, uint64(outputIndex), output, wireTx.OutputsData); err != nil {
			return fmt.Errorf("append output %d: %w", outputIndex, err)
		}
	}

	return nil
}

// spendInput marks the cell an input references as consumed and records
// its lock/type scripts as input-side transactions_scripts rows. A
// referenced cell that is absent is a consistency violation: logged, not
// fatal, since it may legally occur only once pruning has removed it.
func (f *Follower) spendInput(tx *sql.Tx, txID int64, inputIndex uint32, input rpc.CellInput) error {
	prevHashBytes, err := codec.HexToBytes(input.PreviousOutput.TxHash)
	if err != nil {
		return fmt.Errorf("decode previous tx hash: %w", err)
	}
	var prevTxHash [32]byte
	copy(prevTxHash[:], prevHashBytes)
	prevIndex, err := codec.HexToUint64(input.PreviousOutput.Index)
	if err != nil {
		return fmt.Errorf("decode previous index: %w", err)
	}

	cell, err := f.store.GetCellByOutpoint(tx, prevTxHash, prevIndex)
	if err != nil {
		return fmt.Errorf("resolve spent cell: %w", err)
	}
	if cell == nil {
		f.log.Error("consistency: input references missing cell", "tx_hash", input.PreviousOutput.TxHash, "index", prevIndex)
		return nil
	}

	if err := f.store.MarkConsumed(tx, prevTxHash, prevIndex); err != nil {
		return fmt.Errorf("mark consumed: %w", err)
	}

	rows := []store.TransactionScript{{
		TransactionDigestID: txID,
		ScriptType:          store.ScriptTypeLock,
		IOType:              store.IOTypeInput,
		Index:               inputIndex,
		ScriptID:            cell.LockScriptID,
	}}
	if cell.TypeScriptID != nil {
		rows = append(rows, store.TransactionScript{
			TransactionDigestID: txID,
			ScriptType:          store.ScriptTypeType,
			IOType:              store.IOTypeInput,
			Index:               inputIndex,
			ScriptID:            *cell.TypeScriptID,
		})
	}
	return f.store.InsertTransactionScripts(tx, rows)
}

func (f *Follower) appendOutput(tx *sql.Tx, txID int64, txHash [32]byte, blockNumber uint64, txIndex uint32, outputIndex uint64, output rpc.CellOutput, outputsData []string) error {
	lockScript, err := toScript(output.Lock)
	if err != nil {
		return fmt.Errorf("decode lock script: %w", err)
	}
	lockID, err := script.Ensure(tx, lockScript)
	if err != nil {
		return fmt.Errorf("intern lock script: %w", err)
	}

	var typeID *int64
	if output.Type != nil {
		typeScript, err := toScript(*output.Type)
		if err != nil {
			return fmt.Errorf("decode type script: %w", err)
		}
		id, err := script.Ensure(tx, typeScript)
		if err != nil {
			return fmt.Errorf("intern type script: %w", err)
		}
		typeID = &id
	}

	var data []byte
	if int(outputIndex) < len(outputsData) {
		data, err = codec.HexToBytes(outputsData[outputIndex])
		if err != nil {
			return fmt.Errorf("decode output data: %w", err)
		}
	}

	capacity, err := codec.HexToUint64(output.Capacity)
	if err != nil {
		return fmt.Errorf("decode capacity: %w", err)
	}

	cell := store.Cell{
		TxHash:       txHash,
		Index:        outputIndex,
		BlockNumber:  blockNumber,
		TxIndex:      txIndex,
		Capacity:     capacity,
		Data:         data,
		UDTAmount:    codec.DataLEToUint128(data),
		LockScriptID: lockID,
		TypeScriptID: typeID,
	}
	if err := f.store.InsertCell(tx, cell); err != nil {
		return fmt.Errorf("insert cell: %w", err)
	}

	rows := []store.TransactionScript{{
		TransactionDigestID: txID,
		ScriptType:          store.ScriptTypeLock,
		IOType:              store.IOTypeOutput,
		Index:               uint32(outputIndex),
		ScriptID:            lockID,
	}}
	if typeID != nil {
		rows = append(rows, store.TransactionScript{
			TransactionDigestID: txID,
			ScriptType:          store.ScriptTypeType,
			IOType:              store.IOTypeOutput,
			Index:               uint32(outputIndex),
			ScriptID:            *typeID,
		})
	}
	return f.store.InsertTransactionScripts(tx, rows)
}

func toScript(s rpc.Script) (script.Script, error) {
	codeHash, err := codec.HexToBytes(s.CodeHash)
	if err != nil {
		return script.Script{}, fmt.Errorf("decode code_hash: %w", err)
	}
	if err := script.Validate(codeHash, nil); err != nil {
		return script.Script{}, err
	}
	hashType, err := script.ParseHashType(s.HashType)
	if err != nil {
		return script.Script{}, err
	}
	args, err := codec.HexToBytes(s.Args)
	if err != nil {
		return script.Script{}, fmt.Errorf("decode args: %w", err)
	}

	var out script.Script
	copy(out.CodeHash[:], codeHash)
	out.HashType = hashType
	out.Args = args
	return out, nil
}

func blockDigest(block *rpc.Block) (store.BlockDigest, error) {
	var d store.BlockDigest

	number, err := codec.HexToUint64(block.Header.Number)
	if err != nil {
		return d, fmt.Errorf("decode number: %w", err)
	}
	hashBytes, err := codec.HexToBytes(block.Header.Hash)
	if err != nil {
		return d, fmt.Errorf("decode hash: %w", err)
	}
	epochBytes, err := codec.HexToBytes(codec.LeftPadHex(block.Header.Epoch, 14))
	if err != nil {
		return d, fmt.Errorf("decode epoch: %w", err)
	}
	daoBytes, err := codec.HexToBytes(block.Header.Dao)
	if err != nil {
		return d, fmt.Errorf("decode dao: %w", err)
	}
	timestamp, err := codec.HexToUint64(block.Header.Timestamp)
	if err != nil {
		return d, fmt.Errorf("decode timestamp: %w", err)
	}

	d.BlockNumber = number
	copy(d.BlockHash[:], hashBytes)
	copy(d.Epoch[:], codec.PadLeft(epochBytes, 7))
	copy(d.Dao[:], daoBytes)
	d.Timestamp = timestamp
	return d, nil
}
