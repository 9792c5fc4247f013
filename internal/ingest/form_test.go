package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/diligentai/jarvisctl/internal/backend"
	"github.com/diligentai/jarvisctl/internal/journal"
)

type submission struct {
	text   string
	source string
}

type fakeKnowledge struct {
	mu    sync.Mutex
	calls []submission
	ack   backend.Ack
	err   error
}

func (f *fakeKnowledge) SubmitKnowledge(_ context.Context, text, source string) (backend.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, submission{text: text, source: source})
	return f.ack, f.err
}

func (f *fakeKnowledge) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (f *fakeRecorder) Record(_ context.Context, e journal.Entry) (journal.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return e, nil
}

const testWindow = 20 * time.Millisecond

func waitForIdle(t *testing.T, f *Form) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.Status() == StatusIdle {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("form never reverted to idle, status %q", f.Status())
}

func TestForm_SuccessLifecycle(t *testing.T) {
	fake := &fakeKnowledge{ack: backend.Ack{Status: "success", ID: "doc-1"}}
	f := NewForm(fake, nil, testWindow)

	if f.Status() != StatusIdle {
		t.Fatalf("expected idle start, got %q", f.Status())
	}

	f.SetText("Q3 revenue grew 12%.")
	f.SetSource("Q3_Report.pdf")

	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if f.Status() != StatusSucceeded {
		t.Fatalf("expected succeeded after resolution, got %q", f.Status())
	}

	waitForIdle(t, f)

	if d := f.Draft(); d.Text != "" || d.Source != "" {
		t.Errorf("expected draft cleared after the display window, got %+v", d)
	}
	if fake.callCount() != 1 {
		t.Errorf("expected exactly one backend call, got %d", fake.callCount())
	}
}

func TestForm_FailurePreservesDraft(t *testing.T) {
	fake := &fakeKnowledge{err: &backend.UnavailableError{Op: "knowledge", HTTPStatus: 503}}
	f := NewForm(fake, nil, testWindow)

	f.SetText("some text")
	f.SetSource("notes.txt")

	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("backend failure must not escape Submit: %v", err)
	}
	if f.Status() != StatusFailed {
		t.Fatalf("expected failed status, got %q", f.Status())
	}

	waitForIdle(t, f)

	d := f.Draft()
	if d.Text != "some text" || d.Source != "notes.txt" {
		t.Errorf("expected draft preserved for retry, got %+v", d)
	}
}

func TestForm_IncompleteDraftIsNoOp(t *testing.T) {
	fake := &fakeKnowledge{}
	f := NewForm(fake, nil, testWindow)

	cases := []Draft{
		{},
		{Text: "text only"},
		{Source: "source only"},
		{Text: "   ", Source: "src"},
		{Text: "text", Source: "\t"},
	}
	for _, d := range cases {
		f.SetText(d.Text)
		f.SetSource(d.Source)
		if err := f.Submit(context.Background()); !errors.Is(err, ErrIncompleteDraft) {
			t.Errorf("draft %+v: expected ErrIncompleteDraft, got %v", d, err)
		}
	}

	if fake.callCount() != 0 {
		t.Errorf("expected no backend calls, got %d", fake.callCount())
	}
}

func TestForm_SubmitWhileBusyIsRejected(t *testing.T) {
	fake := &fakeKnowledge{ack: backend.Ack{ID: "doc-1"}}
	f := NewForm(fake, nil, time.Second)

	f.SetText("text")
	f.SetSource("src")
	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Status window still showing succeeded
	f.SetText("next text")
	f.SetSource("next src")
	if err := f.Submit(context.Background()); !errors.Is(err, ErrNotIdle) {
		t.Errorf("expected ErrNotIdle during the display window, got %v", err)
	}
	if fake.callCount() != 1 {
		t.Errorf("expected one backend call, got %d", fake.callCount())
	}
}

func TestForm_EditDuringWindowSurvivesAutoClear(t *testing.T) {
	fake := &fakeKnowledge{ack: backend.Ack{ID: "doc-1"}}
	f := NewForm(fake, nil, testWindow)

	f.SetText("original")
	f.SetSource("src")
	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Operator starts a new draft while "succeeded" is showing.
	f.SetText("new draft in progress")

	waitForIdle(t, f)

	if d := f.Draft(); d.Text != "new draft in progress" {
		t.Errorf("delayed clear clobbered the new draft: %+v", d)
	}
}

func TestForm_JournalsOutcomes(t *testing.T) {
	rec := &fakeRecorder{}
	fake := &fakeKnowledge{ack: backend.Ack{ID: "doc-9"}}
	f := NewForm(fake, rec, testWindow)

	f.SetText("payload")
	f.SetSource("doc.txt")
	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	waitForIdle(t, f)

	fake.err = &backend.UnavailableError{Op: "knowledge", HTTPStatus: 500}
	f.SetText("payload two")
	f.SetSource("doc2.txt")
	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.entries) != 2 {
		t.Fatalf("expected 2 journal entries, got %d", len(rec.entries))
	}
	if rec.entries[0].Status != journal.StatusSucceeded || rec.entries[0].DocID != "doc-9" {
		t.Errorf("unexpected first entry: %+v", rec.entries[0])
	}
	if rec.entries[1].Status != journal.StatusFailed || rec.entries[1].DocID != "" {
		t.Errorf("unexpected second entry: %+v", rec.entries[1])
	}
}
