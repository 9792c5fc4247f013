package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestJournal(t *testing.T) {
	ctx := context.Background()

	j, err := Open(ctx, filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer j.Close()

	first, err := j.Record(ctx, Entry{
		Source:    "Q3_Report.pdf",
		SizeBytes: 42,
		Status:    StatusSucceeded,
		DocID:     "doc-1",
		CreatedAt: time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if first.ID == "" {
		t.Error("expected a generated id")
	}

	if _, err := j.Record(ctx, Entry{
		Source:    "notes.txt",
		SizeBytes: 7,
		Status:    StatusFailed,
	}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	entries, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// Newest first
	if entries[0].Source != "notes.txt" || entries[0].Status != StatusFailed {
		t.Errorf("unexpected newest entry: %+v", entries[0])
	}
	if entries[1].Source != "Q3_Report.pdf" || entries[1].DocID != "doc-1" {
		t.Errorf("unexpected oldest entry: %+v", entries[1])
	}
}

func TestJournal_RecentLimit(t *testing.T) {
	ctx := context.Background()

	j, err := Open(ctx, filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer j.Close()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		if _, err := j.Record(ctx, Entry{
			Source:    "doc.txt",
			SizeBytes: int64(i),
			Status:    StatusSucceeded,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
	}

	entries, err := j.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected limit of 3, got %d", len(entries))
	}
}
