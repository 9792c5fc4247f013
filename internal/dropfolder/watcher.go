// Package dropfolder watches a directory and ingests files dropped
// into it: JSON manifests carry their own text and source, anything
// else is ingested verbatim under its filename. Submissions go through
// the same backend operation and journal as manual ingestion; the
// operator's draft is never touched.
package dropfolder

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/fsnotify/fsnotify"
	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/xeipuuv/gojsonschema"

	"github.com/diligentai/jarvisctl/internal/backend"
	"github.com/diligentai/jarvisctl/internal/journal"
)

// IgnoreFile lists gitignore-style patterns excluded from ingestion.
const IgnoreFile = ".jarvisignore"

// manifestSchema validates .json drop files.
const manifestSchema = `{
	"type": "object",
	"required": ["text", "source"],
	"properties": {
		"text":   {"type": "string", "minLength": 1},
		"source": {"type": "string", "minLength": 1}
	}
}`

type manifest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Submitter is the slice of the backend client the watcher uses.
type Submitter interface {
	SubmitKnowledge(ctx context.Context, text, source string) (backend.Ack, error)
}

// Recorder journals resolved submissions. Satisfied by *journal.Journal.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (journal.Entry, error)
}

// Watcher ingests files dropped into a single directory. Events are
// debounced so a file written in several chunks is ingested once.
type Watcher struct {
	dir      string
	maxBytes int64
	client   Submitter
	rec      Recorder // optional

	watcher  *fsnotify.Watcher
	schema   *gojsonschema.Schema
	ignore   gitignore.IgnoreParser // nil when no ignore file exists
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher for dir. maxBytes caps individual file sizes;
// rec may be nil to disable journaling.
func New(dir string, maxBytes int64, client Submitter, rec Recorder) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(manifestSchema))
	if err != nil {
		fw.Close()
		return nil, err
	}

	var ignore gitignore.IgnoreParser
	if matcher, err := gitignore.CompileIgnoreFile(filepath.Join(dir, IgnoreFile)); err == nil {
		ignore = matcher
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		dir:      dir,
		maxBytes: maxBytes,
		client:   client,
		rec:      rec,
		watcher:  fw,
		schema:   schema,
		ignore:   ignore,
		debounce: 500 * time.Millisecond,
		pending:  make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins watching the drop folder.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()
	return nil
}

// Stop stops watching and waits for in-flight ingestions to finish.
func (w *Watcher) Stop() error {
	w.cancel()
	w.wg.Wait()
	return w.watcher.Close()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending[event.Name] = true
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  Drop folder watcher error: %v", err)
		}
	}
}

func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			if len(w.pending) == 0 {
				w.mu.Unlock()
				continue
			}
			batch := make([]string, 0, len(w.pending))
			for path := range w.pending {
				batch = append(batch, path)
			}
			w.pending = make(map[string]bool)
			w.mu.Unlock()

			for _, path := range batch {
				w.ingestFile(path)
			}
		}
	}
}

func (w *Watcher) ingestFile(path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return // dotfiles, including the ignore file itself
	}

	if w.ignore != nil {
		rel, err := filepath.Rel(w.dir, path)
		if err == nil && w.ignore.MatchesPath(rel) {
			return
		}
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if info.Size() > w.maxBytes {
		log.Printf("⚠️  Skipping %s: %s exceeds the %s ingest cap",
			name, units.BytesSize(float64(info.Size())), units.BytesSize(float64(w.maxBytes)))
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("⚠️  Failed to read %s: %v", name, err)
		return
	}

	text := string(data)
	source := name
	if strings.EqualFold(filepath.Ext(name), ".json") {
		result, err := w.schema.Validate(gojsonschema.NewBytesLoader(data))
		if err != nil || !result.Valid() {
			log.Printf("⚠️  Skipping %s: not a valid ingestion manifest", name)
			return
		}
		var m manifest
		if err := json.Unmarshal(data, &m); err != nil {
			log.Printf("⚠️  Skipping %s: %v", name, err)
			return
		}
		text, source = m.Text, m.Source
	}

	if strings.TrimSpace(text) == "" {
		return
	}

	ack, err := w.client.SubmitKnowledge(w.ctx, text, source)

	entry := journal.Entry{
		Source:    source,
		SizeBytes: int64(len(text)),
		Status:    journal.StatusSucceeded,
		DocID:     ack.ID,
	}
	if err != nil {
		entry.Status = journal.StatusFailed
		entry.DocID = ""
		log.Printf("⚠️  Failed to ingest %s: %v", name, err)
	} else {
		log.Printf("📄 Ingested %s (%s) as %s", name, units.BytesSize(float64(len(text))), source)
	}

	if w.rec != nil {
		if _, jerr := w.rec.Record(w.ctx, entry); jerr != nil {
			log.Printf("⚠️  Failed to journal ingestion: %v", jerr)
		}
	}
}
