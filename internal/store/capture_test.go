package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/roach88/tracegraph/internal/builder"
	"github.com/roach88/tracegraph/internal/record"
)

func TestImportCapture_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	c := createTestCollection("talker")

	capture, inserted, err := s.ImportCapture(ctx, "demo", []string{"a.jsonl", "b.yaml"}, c)
	if err != nil {
		t.Fatalf("ImportCapture() failed: %v", err)
	}
	if !inserted {
		t.Fatal("first import was not inserted")
	}
	if capture.ID != "capture-1" || capture.Seq != 1 {
		t.Errorf("capture = %s seq %d, want capture-1 seq 1", capture.ID, capture.Seq)
	}
	if capture.Records != c.Len() {
		t.Errorf("Records = %d, want %d", capture.Records, c.Len())
	}

	loaded, err := s.LoadCapture(ctx, capture.ID)
	if err != nil {
		t.Fatalf("LoadCapture() failed: %v", err)
	}
	if loaded.Discarded != 2 {
		t.Errorf("Discarded = %d, want 2", loaded.Discarded)
	}
	if got := record.MustFingerprint(loaded); got != capture.Fingerprint {
		t.Errorf("reloaded fingerprint = %s, want %s", got, capture.Fingerprint)
	}

	pub := loaded.Get(record.RCLPublisherInit)
	if len(pub) != 1 {
		t.Fatalf("publisher inits = %d, want 1", len(pub))
	}
	if h, _ := pub[0].Handle("publisher_handle"); h != 0xffff_0000_0000_0001 {
		t.Errorf("publisher_handle = %#x, want 0xffff000000000001", h)
	}
	gid, _ := loaded.Get(record.RMWPublisherInit)[0].Bytes("gid")
	if !reflect.DeepEqual(gid, []byte{1, 2, 250}) {
		t.Errorf("gid = %v, want [1 2 250]", gid)
	}
	if tid := loaded.Get(record.CallbackStart)[0].Thread(); tid != 7 {
		t.Errorf("vtid = %d, want 7", tid)
	}

	got, err := s.GetCapture(ctx, capture.ID)
	if err != nil {
		t.Fatalf("GetCapture() failed: %v", err)
	}
	if !reflect.DeepEqual(got, capture) {
		t.Errorf("GetCapture() = %+v, want %+v", got, capture)
	}
}

func TestImportCapture_Deduplicates(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	first, _, err := s.ImportCapture(ctx, "demo", nil, createTestCollection("talker"))
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	second, inserted, err := s.ImportCapture(ctx, "again", nil, createTestCollection("talker"))
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if inserted {
		t.Error("identical record set was inserted twice")
	}
	if second.ID != first.ID || second.Name != "demo" {
		t.Errorf("second import = %s %q, want existing %s %q", second.ID, second.Name, first.ID, "demo")
	}

	captures, err := s.ListCaptures(ctx)
	if err != nil {
		t.Fatalf("ListCaptures() failed: %v", err)
	}
	if len(captures) != 1 {
		t.Errorf("captures = %d, want 1", len(captures))
	}
}

func TestListCaptures_ImportOrder(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	empty, err := s.ListCaptures(ctx)
	if err != nil {
		t.Fatalf("ListCaptures() on empty store: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("empty store = %#v, want empty non-nil slice", empty)
	}

	for _, name := range []string{"talker", "listener"} {
		if _, _, err := s.ImportCapture(ctx, name, []string{name + ".jsonl"}, createTestCollection(name)); err != nil {
			t.Fatalf("import %s: %v", name, err)
		}
	}

	captures, err := s.ListCaptures(ctx)
	if err != nil {
		t.Fatalf("ListCaptures() failed: %v", err)
	}
	if len(captures) != 2 {
		t.Fatalf("captures = %d, want 2", len(captures))
	}
	for i, want := range []string{"talker", "listener"} {
		if captures[i].Name != want || captures[i].Seq != int64(i+1) {
			t.Errorf("captures[%d] = %q seq %d, want %q seq %d", i, captures[i].Name, captures[i].Seq, want, i+1)
		}
		if !reflect.DeepEqual(captures[i].Sources, []string{want + ".jsonl"}) {
			t.Errorf("captures[%d].Sources = %v", i, captures[i].Sources)
		}
	}
}

func TestFindCapture(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	if _, _, err := s.ImportCapture(ctx, "demo", nil, createTestCollection("a")); err != nil {
		t.Fatal(err)
	}
	latest, _, err := s.ImportCapture(ctx, "demo", nil, createTestCollection("b"))
	if err != nil {
		t.Fatal(err)
	}

	byName, err := s.FindCapture(ctx, "demo")
	if err != nil {
		t.Fatalf("FindCapture(name) failed: %v", err)
	}
	if byName.ID != latest.ID {
		t.Errorf("FindCapture(name) = %s, want latest %s", byName.ID, latest.ID)
	}

	byID, err := s.FindCapture(ctx, "capture-1")
	if err != nil {
		t.Fatalf("FindCapture(id) failed: %v", err)
	}
	if byID.ID != "capture-1" {
		t.Errorf("FindCapture(id) = %s, want capture-1", byID.ID)
	}

	if _, err := s.FindCapture(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindCapture(unknown) error = %v, want ErrNotFound", err)
	}
	if _, err := s.LoadCapture(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadCapture(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestWriteDiagnostics_ReplacesPreviousBuild(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	capture, _, err := s.ImportCapture(ctx, "demo", nil, createTestCollection("talker"))
	if err != nil {
		t.Fatal(err)
	}

	first := builder.Diagnostics{
		{Code: builder.CodeUpstreamDataLoss, Pass: builder.PassCapture, Message: "lost 2"},
		{
			Code:       builder.CodeUnresolvedReference,
			Pass:       builder.PassCallbackEvents,
			Tracepoint: record.CallbackStart,
			Timestamp:  100,
			Handle:     0xffff_ffff_ffff_fff0,
			Message:    "unregistered callback",
		},
	}
	if err := s.WriteDiagnostics(ctx, capture.ID, first); err != nil {
		t.Fatalf("WriteDiagnostics() failed: %v", err)
	}
	got, err := s.ReadDiagnostics(ctx, capture.ID)
	if err != nil {
		t.Fatalf("ReadDiagnostics() failed: %v", err)
	}
	if !reflect.DeepEqual(got, first) {
		t.Errorf("ReadDiagnostics() = %+v, want %+v", got, first)
	}

	counts, err := s.CountDiagnostics(ctx, capture.ID)
	if err != nil {
		t.Fatalf("CountDiagnostics() failed: %v", err)
	}
	want := map[builder.Code]int{builder.CodeUpstreamDataLoss: 1, builder.CodeUnresolvedReference: 1}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("CountDiagnostics() = %v, want %v", counts, want)
	}

	if err := s.WriteDiagnostics(ctx, capture.ID, first[:1]); err != nil {
		t.Fatalf("rewrite diagnostics: %v", err)
	}
	got, err = s.ReadDiagnostics(ctx, capture.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("diagnostics after rewrite = %d, want 1", len(got))
	}
}

func TestWriteDiagnostics_UnknownCapture(t *testing.T) {
	s := createTestStore(t)
	diags := builder.Diagnostics{{Code: builder.CodeIncompleteEvent, Pass: builder.PassPublishEvents, Message: "x"}}
	if err := s.WriteDiagnostics(context.Background(), "missing", diags); err == nil {
		t.Error("WriteDiagnostics() for unknown capture succeeded, want foreign key error")
	}
}

func TestDeleteCapture_Cascades(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	capture, _, err := s.ImportCapture(ctx, "demo", nil, createTestCollection("talker"))
	if err != nil {
		t.Fatal(err)
	}
	diags := builder.Diagnostics{{Code: builder.CodeIncompleteEvent, Pass: builder.PassPublishEvents, Message: "x"}}
	if err := s.WriteDiagnostics(ctx, capture.ID, diags); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteCapture(ctx, capture.ID); err != nil {
		t.Fatalf("DeleteCapture() failed: %v", err)
	}
	for _, table := range []string{"records", "diagnostics"} {
		var n int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("%s rows after delete = %d, want 0", table, n)
		}
	}
	if err := s.DeleteCapture(ctx, capture.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteCapture() error = %v, want ErrNotFound", err)
	}
}
