package follower

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/lay2dev/chainindex/internal/codec"
	"github.com/lay2dev/chainindex/internal/rpc"
	"github.com/lay2dev/chainindex/internal/store"
)

// chainFixture serves a small in-memory chain over JSON-RPC, reorgable by
// swapping out blocks at and above a height.
type chainFixture struct {
	blocks map[uint64]rpc.Block
}

func newChainFixture() *chainFixture {
	return &chainFixture{blocks: map[uint64]rpc.Block{}}
}

func testLockScript(args string) rpc.Script {
	return rpc.Script{CodeHash: codec.BytesToHex(make([]byte, 32)), HashType: "type", Args: args}
}

func (f *chainFixture) addBlock(number uint64, parentHash string, hash string) {
	f.blocks[number] = rpc.Block{
		Header: rpc.Header{
			Number:     codec.Uint64ToHex(number),
			Hash:       hash,
			ParentHash: parentHash,
			Dao:        codec.BytesToHex(make([]byte, 32)),
			Epoch:      "0x0",
			Timestamp:  codec.Uint64ToHex(1000 + number),
		},
		Transactions: []rpc.Transaction{{
			Hash:        hash + "aa",
			Inputs:      []rpc.CellInput{{PreviousOutput: rpc.OutPoint{TxHash: codec.BytesToHex(make([]byte, 32)), Index: "0x0"}}},
			Outputs:     []rpc.CellOutput{{Capacity: "0x64", Lock: testLockScript(codec.Uint64ToHex(number))}},
			OutputsData: []string{"0x"},
		}},
	}
}

func (f *chainFixture) server(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "get_block_by_number":
			var hexNumber string
			json.Unmarshal(req.Params[0], &hexNumber)
			number, _ := codec.HexToUint64(hexNumber)
			block, ok := f.blocks[number]
			if !ok {
				json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": nil})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": block})
		default:
			t.Fatalf("unexpected RPC method %q", req.Method)
		}
	}))
}

func newTestFollower(t *testing.T, client *rpc.Client) (*Follower, *store.Storage) {
	t.Helper()
	dir, err := os.MkdirTemp("", "chainindex-follower-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	st, err := store.New(&store.Config{Driver: store.DriverSQLite, DataDir: dir})
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	f := New(st, client, Config{PollInterval: time.Second, KeepNum: 10000, PruneInterval: 2000}, nil)
	return f, st
}

func TestNewFollowerStartsStopped(t *testing.T) {
	f, _ := newTestFollower(t, rpc.NewClient("http://unused", time.Second))
	if f.State() != StateStopped {
		t.Errorf("expected initial state Stopped, got %s", f.State())
	}
	if f.Running() {
		t.Error("expected Running() == false before Start")
	}
}

func TestCycleAppendsGenesisThenNextBlock(t *testing.T) {
	fixture := newChainFixture()
	fixture.addBlock(0, "0x"+pad("00"), "0x"+pad("aa"))
	fixture.addBlock(1, "0x"+pad("aa"), "0x"+pad("bb"))
	srv := fixture.server(t)
	defer srv.Close()

	f, st := newTestFollower(t, rpc.NewClient(srv.URL, time.Second))

	ctx := context.Background()
	if _, err := f.cycle(ctx); err != nil {
		t.Fatalf("cycle() (genesis) error = %v", err)
	}
	tip, err := st.Tip()
	if err != nil {
		t.Fatalf("Tip() error = %v", err)
	}
	if tip == nil || tip.BlockNumber != 0 {
		t.Fatalf("expected tip at block 0, got %+v", tip)
	}

	if _, err := f.cycle(ctx); err != nil {
		t.Fatalf("cycle() (block 1) error = %v", err)
	}
	tip, err = st.Tip()
	if err != nil {
		t.Fatalf("Tip() error = %v", err)
	}
	if tip == nil || tip.BlockNumber != 1 {
		t.Fatalf("expected tip at block 1, got %+v", tip)
	}
}

func TestCycleNoNextBlockSchedulesPollInterval(t *testing.T) {
	fixture := newChainFixture()
	fixture.addBlock(0, "0x"+pad("00"), "0x"+pad("aa"))
	srv := fixture.server(t)
	defer srv.Close()

	f, _ := newTestFollower(t, rpc.NewClient(srv.URL, time.Second))
	ctx := context.Background()

	if _, err := f.cycle(ctx); err != nil {
		t.Fatalf("cycle() (genesis) error = %v", err)
	}
	sleep, err := f.cycle(ctx)
	if err != nil {
		t.Fatalf("cycle() (no next block) error = %v", err)
	}
	if sleep != f.cfg.PollInterval {
		t.Errorf("expected poll interval sleep, got %v", sleep)
	}
}

func TestCycleRollsBackOnReorg(t *testing.T) {
	fixture := newChainFixture()
	fixture.addBlock(0, "0x"+pad("00"), "0x"+pad("aa"))
	fixture.addBlock(1, "0x"+pad("aa"), "0x"+pad("bb"))
	srv := fixture.server(t)
	defer srv.Close()

	f, st := newTestFollower(t, rpc.NewClient(srv.URL, time.Second))
	ctx := context.Background()

	if _, err := f.cycle(ctx); err != nil {
		t.Fatalf("cycle() (genesis) error = %v", err)
	}
	if _, err := f.cycle(ctx); err != nil {
		t.Fatalf("cycle() (block 1) error = %v", err)
	}

	// Reorg: the node now serves a block 2 whose parent hash doesn't match
	// our retained tip (block 1, hash "bb"), so the next cycle must detect
	// the fork and roll back the tip rather than append.
	fixture.addBlock(2, "0x"+pad("zz"), "0x"+pad("cc"))

	if _, err := f.cycle(ctx); err != nil {
		t.Fatalf("cycle() (rollback) error = %v", err)
	}
	tip, err := st.Tip()
	if err != nil {
		t.Fatalf("Tip() error = %v", err)
	}
	if tip == nil || tip.BlockNumber != 0 {
		t.Fatalf("expected rollback to leave tip at block 0, got %+v", tip)
	}
}

func TestAppendSpendsReferencedCellAndRollbackRestores(t *testing.T) {
	fixture := newChainFixture()
	genesisHash := "0x" + pad("aa")
	block1Hash := "0x" + pad("bb")
	genesisTx := "0x" + pad("a1")
	spendTx := "0x" + pad("b2")

	cellbase := func(hash string, number uint64) rpc.Transaction {
		return rpc.Transaction{
			Hash:        hash,
			Inputs:      []rpc.CellInput{{PreviousOutput: rpc.OutPoint{TxHash: codec.BytesToHex(make([]byte, 32)), Index: "0x0"}}},
			Outputs:     []rpc.CellOutput{{Capacity: "0x1000", Lock: testLockScript(codec.Uint64ToHex(number))}},
			OutputsData: []string{"0x"},
		}
	}
	header := func(number uint64, hash, parent string) rpc.Header {
		return rpc.Header{
			Number:     codec.Uint64ToHex(number),
			Hash:       hash,
			ParentHash: parent,
			Dao:        codec.BytesToHex(make([]byte, 32)),
			Epoch:      "0x0",
			Timestamp:  codec.Uint64ToHex(1000 + number),
		}
	}
	fixture.blocks[0] = rpc.Block{
		Header:       header(0, genesisHash, "0x"+pad("00")),
		Transactions: []rpc.Transaction{cellbase(genesisTx, 0)},
	}
	fixture.blocks[1] = rpc.Block{
		Header: header(1, block1Hash, genesisHash),
		Transactions: []rpc.Transaction{
			cellbase("0x"+pad("b1"), 1),
			{
				Hash:        spendTx,
				Inputs:      []rpc.CellInput{{PreviousOutput: rpc.OutPoint{TxHash: genesisTx, Index: "0x0"}}},
				Outputs:     []rpc.CellOutput{{Capacity: "0xfff", Lock: testLockScript("0x0")}},
				OutputsData: []string{"0x"},
			},
		},
	}
	srv := fixture.server(t)
	defer srv.Close()

	f, st := newTestFollower(t, rpc.NewClient(srv.URL, time.Second))
	ctx := context.Background()

	if _, err := f.cycle(ctx); err != nil {
		t.Fatalf("cycle() (genesis) error = %v", err)
	}
	if _, err := f.cycle(ctx); err != nil {
		t.Fatalf("cycle() (block 1) error = %v", err)
	}

	var genesisOutpoint [32]byte
	b, err := codec.HexToBytes(genesisTx)
	if err != nil {
		t.Fatalf("decode genesis tx hash: %v", err)
	}
	copy(genesisOutpoint[:], b)

	dbtx, err := st.DB().Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	cell, err := st.GetCellByOutpoint(dbtx, genesisOutpoint, 0)
	if err != nil {
		t.Fatalf("GetCellByOutpoint() error = %v", err)
	}
	if cell == nil || !cell.Consumed {
		t.Fatalf("expected the genesis output to be consumed after block 1, got %+v", cell)
	}
	dbtx.Rollback()

	// Fork: the node now serves a block 2 whose parent isn't our tip, so the
	// next cycle rolls block 1 back. Its spend must be undone and the cells
	// it produced must disappear.
	fixture.addBlock(2, "0x"+pad("zz"), "0x"+pad("cc"))
	if _, err := f.cycle(ctx); err != nil {
		t.Fatalf("cycle() (rollback) error = %v", err)
	}

	dbtx, err = st.DB().Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer dbtx.Rollback()
	cell, err = st.GetCellByOutpoint(dbtx, genesisOutpoint, 0)
	if err != nil {
		t.Fatalf("GetCellByOutpoint() error = %v", err)
	}
	if cell == nil || cell.Consumed {
		t.Fatalf("expected the genesis output to be live again after rollback, got %+v", cell)
	}

	var spendOutpoint [32]byte
	b, err = codec.HexToBytes(spendTx)
	if err != nil {
		t.Fatalf("decode spend tx hash: %v", err)
	}
	copy(spendOutpoint[:], b)
	gone, err := st.GetCellByOutpoint(dbtx, spendOutpoint, 0)
	if err != nil {
		t.Fatalf("GetCellByOutpoint() error = %v", err)
	}
	if gone != nil {
		t.Errorf("expected the rolled-back block's output to be gone, got %+v", gone)
	}
}

func TestStartStopTransitionsState(t *testing.T) {
	fixture := newChainFixture()
	srv := fixture.server(t)
	defer srv.Close()

	f, _ := newTestFollower(t, rpc.NewClient(srv.URL, time.Second))
	f.Start()
	if !f.Running() {
		t.Error("expected Running() == true after Start")
	}
	f.Stop()
	if f.Running() {
		t.Error("expected Running() == false after Stop")
	}
	if f.State() != StateStopped {
		t.Errorf("expected state Stopped after Stop, got %s", f.State())
	}
}

// pad renders a short ascii tag as a 64-char hex body so test block hashes
// are distinguishable without hand-writing 32 bytes of hex per case.
func pad(tag string) string {
	out := make([]byte, 64)
	for i := range out {
		out[i] = '0'
	}
	copy(out, []byte(tag))
	return string(out)
}
