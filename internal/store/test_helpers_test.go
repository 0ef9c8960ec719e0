package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/tracegraph/internal/record"
	"github.com/roach88/tracegraph/internal/testutil"
)

// createTestStore creates a new store in a temp directory with sequential
// capture IDs (capture-1, capture-2, ...).
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(&testutil.SequenceIDGenerator{}))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCollection builds a small capture. Distinct node names give
// distinct fingerprints.
func createTestCollection(nodeName string) *record.Collection {
	tr := testutil.NewTrace()
	tr.Context(1)
	tr.Node(0x10, 0x11, nodeName, "/")
	tr.Publisher(testutil.Endpoint{Handle: 0xffff_0000_0000_0001, RMW: 0x101, Node: 0x10, Topic: "/chatter", GID: []byte{1, 2, 250}})
	tr.CallbackRun(0x500, 100, 150, 7)
	tr.Discarded(2)
	return tr.Collection()
}
