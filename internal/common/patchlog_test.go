package common

import (
	"path/filepath"
	"testing"
	"time"
)

func TestPatchLogAppendRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.jsonl")
	log := NewPatchLog(path)

	entries := []PatchEntry{
		{Op: "patch-body", Offset: 0x100, Length: 256, BeforeSha256: "aa", AfterSha256: "bb", Note: "first"},
		{Op: "patch-body", Offset: 0x900, Length: 512, BeforeSha256: "cc", AfterSha256: "dd"},
	}
	for _, e := range entries {
		if err := log.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := ReadPatchLog(path)
	if err != nil {
		t.Fatalf("ReadPatchLog: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("read %d entries, want %d", len(got), len(entries))
	}
	for i, e := range got {
		want := entries[i]
		if e.Op != want.Op || e.Offset != want.Offset || e.Length != want.Length ||
			e.BeforeSha256 != want.BeforeSha256 || e.AfterSha256 != want.AfterSha256 || e.Note != want.Note {
			t.Fatalf("entry %d = %+v, want %+v", i, e, want)
		}
		if e.Ts.IsZero() {
			t.Fatalf("entry %d has no timestamp", i)
		}
	}
}

func TestPatchLogKeepsExplicitTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := NewPatchLog(path).Append(PatchEntry{Op: "patch-body", Ts: ts}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, err := ReadPatchLog(path)
	if err != nil {
		t.Fatalf("ReadPatchLog: %v", err)
	}
	if !got[0].Ts.Equal(ts) {
		t.Fatalf("ts = %v, want %v", got[0].Ts, ts)
	}
}

func TestPatchLogRejectsMissingOp(t *testing.T) {
	log := NewPatchLog(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err := log.Append(PatchEntry{Offset: 1}); err == nil {
		t.Fatalf("expected error for entry without op")
	}
}
