package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/diligentai/jarvisctl/internal/backend"
	"github.com/diligentai/jarvisctl/internal/chat"
	"github.com/diligentai/jarvisctl/internal/config"
	"github.com/diligentai/jarvisctl/internal/dropfolder"
	"github.com/diligentai/jarvisctl/internal/ingest"
	"github.com/diligentai/jarvisctl/internal/journal"
	"github.com/diligentai/jarvisctl/internal/monitor"
)

// runtimeEnv wires the core components together for one console
// session. Close tears everything down: no periodic work survives it.
type runtimeEnv struct {
	Config  *config.Config
	Client  *backend.Client
	Session *chat.Session
	Form    *ingest.Form
	Monitor *monitor.Monitor
	Journal *journal.Journal

	watcher *dropfolder.Watcher
}

func (r *runtimeEnv) Close() {
	if r.watcher != nil {
		if err := r.watcher.Stop(); err != nil {
			log.Printf("⚠️  Failed to stop drop folder watcher: %v", err)
		}
	}
	r.Monitor.Stop()
	if r.Journal != nil {
		r.Journal.Close()
	}
}

func prepareRuntimeEnv(ctx context.Context, backendFlag, dropFlag string) (*runtimeEnv, error) {
	mgr, err := config.NewManager()
	if err != nil {
		log.Printf("⚠️  Failed to initialize config manager: %v", err)
		mgr = nil
	}

	cfg := loadConfig(mgr)
	if backendFlag != "" {
		cfg.BackendURL = backendFlag
	}
	if dropFlag != "" {
		cfg.DropFolder = dropFlag
	}

	timeout, err := cfg.Timeout()
	if err != nil {
		log.Printf("⚠️  %v (requests will not time out)", err)
		timeout = 0
	}
	poll, err := cfg.Poll()
	if err != nil {
		log.Printf("⚠️  %v (using default poll interval)", err)
		poll = config.DefaultPollInterval
	}
	window, err := cfg.Window()
	if err != nil {
		log.Printf("⚠️  %v (using default status window)", err)
		window = config.DefaultStatusWindow
	}

	client := backend.NewClient(cfg.Backend(), timeout)
	log.Printf("Backend: %s", cfg.Backend())

	session := chat.NewSession(client)
	if !cfg.ContextDefault() {
		session.ToggleContext()
	}

	jrnl := openJournal(ctx, mgr)

	var rec ingest.Recorder
	if jrnl != nil {
		rec = jrnl
	}
	form := ingest.NewForm(client, rec, window)

	mon := monitor.New(client, poll)
	mon.Start()

	env := &runtimeEnv{
		Config:  cfg,
		Client:  client,
		Session: session,
		Form:    form,
		Monitor: mon,
		Journal: jrnl,
	}

	if cfg.DropFolder != "" {
		env.watcher = startDropFolder(cfg, client, jrnl)
	}

	return env, nil
}

func loadConfig(mgr *config.Manager) *config.Config {
	if mgr == nil {
		return &config.Config{}
	}

	cfg, err := mgr.Load()
	if err != nil {
		log.Printf("⚠️  Failed to load user config: %v", err)
		return &config.Config{}
	}
	if mgr.Exists() {
		log.Printf("User config loaded from: %s", mgr.GetConfigPath())
	}
	return cfg
}

// openJournal opens the ingestion journal under the config dir. The
// journal is a convenience; failures disable it rather than aborting
// the session.
func openJournal(ctx context.Context, mgr *config.Manager) *journal.Journal {
	if mgr == nil {
		return nil
	}
	if err := os.MkdirAll(mgr.Dir(), 0755); err != nil {
		log.Printf("⚠️  Failed to create config dir: %v (journal disabled)", err)
		return nil
	}

	jrnl, err := journal.Open(ctx, filepath.Join(mgr.Dir(), "journal.db"))
	if err != nil {
		log.Printf("⚠️  Failed to open ingestion journal: %v (journal disabled)", err)
		return nil
	}
	return jrnl
}

func startDropFolder(cfg *config.Config, client *backend.Client, jrnl *journal.Journal) *dropfolder.Watcher {
	if info, err := os.Stat(cfg.DropFolder); err != nil || !info.IsDir() {
		log.Printf("⚠️  Drop folder is not a valid directory: %s (watcher disabled)", cfg.DropFolder)
		return nil
	}

	maxBytes, err := cfg.MaxIngestBytes()
	if err != nil {
		log.Printf("⚠️  %v (watcher disabled)", err)
		return nil
	}

	var rec dropfolder.Recorder
	if jrnl != nil {
		rec = jrnl
	}

	watcher, err := dropfolder.New(cfg.DropFolder, maxBytes, client, rec)
	if err != nil {
		log.Printf("⚠️  Failed to create drop folder watcher: %v", err)
		return nil
	}
	if err := watcher.Start(); err != nil {
		log.Printf("⚠️  Failed to start drop folder watcher: %v", err)
		return nil
	}

	log.Printf("📂 Watching drop folder: %s", cfg.DropFolder)
	return watcher
}
