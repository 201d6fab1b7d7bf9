package script

import (
	"os"
	"testing"

	"github.com/lay2dev/chainindex/internal/store"
)

func newTestStore(t *testing.T) *store.Storage {
	t.Helper()
	dir, err := os.MkdirTemp("", "chainindex-script-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	st, err := store.New(&store.Config{Driver: store.DriverSQLite, DataDir: dir})
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestEnsureInsertsOnce(t *testing.T) {
	st := newTestStore(t)
	s := Script{HashType: HashTypeType, Args: []byte{1, 2, 3}}
	s.CodeHash[0] = 0xAB

	tx, err := st.DB().Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	id1, err := Ensure(tx, s)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	id2, err := Ensure(tx, s)
	if err != nil {
		t.Fatalf("Ensure() second call error = %v", err)
	}
	if id1 != id2 {
		t.Errorf("Ensure() returned different ids for the same script: %d != %d", id1, id2)
	}
}

func TestEnsureDistinguishesArgs(t *testing.T) {
	st := newTestStore(t)
	base := Script{HashType: HashTypeType}
	a := base
	a.Args = []byte{1}
	b := base
	b.Args = []byte{2}

	tx, err := st.DB().Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	idA, err := Ensure(tx, a)
	if err != nil {
		t.Fatalf("Ensure(a) error = %v", err)
	}
	idB, err := Ensure(tx, b)
	if err != nil {
		t.Fatalf("Ensure(b) error = %v", err)
	}
	if idA == idB {
		t.Error("distinct scripts were interned to the same id")
	}
}
