// Package ingest owns the knowledge-ingestion form: the draft fields
// and the submission lifecycle status. It is the sole mutator of both.
package ingest

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/diligentai/jarvisctl/internal/backend"
	"github.com/diligentai/jarvisctl/internal/journal"
)

// Status is the sole UI-facing signal of ingestion progress.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// DefaultStatusWindow is how long a terminal status stays visible
// before auto-reverting to idle.
const DefaultStatusWindow = 2 * time.Second

var (
	// ErrIncompleteDraft rejects submission while either field is empty.
	ErrIncompleteDraft = errors.New("both text and source are required")
	// ErrNotIdle rejects submission while a previous one is still
	// submitting or showing its terminal status.
	ErrNotIdle = errors.New("an ingestion is already in progress")
)

// Draft holds the raw text and source identifier to be ingested.
type Draft struct {
	Text   string
	Source string
}

// KnowledgeBackend is the slice of the backend client the form uses.
type KnowledgeBackend interface {
	SubmitKnowledge(ctx context.Context, text, source string) (backend.Ack, error)
}

// Recorder journals resolved submissions. Satisfied by *journal.Journal.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (journal.Entry, error)
}

// Form is the ingestion state machine:
// idle -> submitting -> {succeeded, failed} -> idle.
// Terminal states revert to idle after the status window; success also
// clears the draft unless the operator edited it in the meantime.
type Form struct {
	client KnowledgeBackend
	rec    Recorder // optional
	window time.Duration

	mu         sync.Mutex
	draft      Draft
	status     Status
	revision   uint64 // bumped on every draft edit; gates the delayed clear
	generation uint64 // bumped per submission; a newer one supersedes pending reverts
}

// NewForm creates an idle form. rec may be nil to disable journaling.
// window <= 0 uses DefaultStatusWindow.
func NewForm(client KnowledgeBackend, rec Recorder, window time.Duration) *Form {
	if window <= 0 {
		window = DefaultStatusWindow
	}
	return &Form{
		client: client,
		rec:    rec,
		window: window,
		status: StatusIdle,
	}
}

// SetText updates the draft text.
func (f *Form) SetText(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Text = text
	f.revision++
}

// SetSource updates the draft source identifier.
func (f *Form) SetSource(source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Source = source
	f.revision++
}

// Draft returns the current draft fields.
func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Status returns the current lifecycle status.
func (f *Form) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Submit runs one ingestion to resolution. It is permitted only when
// both draft fields are non-empty after trimming and the status is
// idle; otherwise nothing happens and no request is issued. Backend
// failures never escape: they surface as the failed status with the
// draft preserved for an explicit operator retry.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	text := strings.TrimSpace(f.draft.Text)
	source := strings.TrimSpace(f.draft.Source)
	if text == "" || source == "" {
		f.mu.Unlock()
		return ErrIncompleteDraft
	}
	if f.status != StatusIdle {
		f.mu.Unlock()
		return ErrNotIdle
	}
	f.status = StatusSubmitting
	f.generation++
	gen := f.generation
	rev := f.revision
	f.mu.Unlock()

	ack, err := f.client.SubmitKnowledge(ctx, text, source)

	f.mu.Lock()
	if err != nil {
		f.status = StatusFailed
	} else {
		f.status = StatusSucceeded
	}
	f.mu.Unlock()

	if f.rec != nil {
		entry := journal.Entry{
			Source:    source,
			SizeBytes: int64(len(text)),
			Status:    journal.StatusSucceeded,
			DocID:     ack.ID,
		}
		if err != nil {
			entry.Status = journal.StatusFailed
			entry.DocID = ""
		}
		if _, jerr := f.rec.Record(ctx, entry); jerr != nil {
			log.Printf("⚠️  Failed to journal ingestion: %v", jerr)
		}
	}

	clearDraft := err == nil
	time.AfterFunc(f.window, func() {
		f.revert(gen, rev, clearDraft)
	})
	return nil
}

// revert is the one-shot delayed reset back to idle. It no-ops if a
// newer submission superseded it, and the success clear no-ops if the
// operator edited the draft since submission.
func (f *Form) revert(gen, rev uint64, clearDraft bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation != gen {
		return
	}
	f.status = StatusIdle
	if clearDraft && f.revision == rev {
		f.draft = Draft{}
		f.revision++
	}
}
