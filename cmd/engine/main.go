package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"jobmatch-engine/internal/config"
	"jobmatch-engine/internal/events"
	"jobmatch-engine/internal/httpapi"
	"jobmatch-engine/internal/refresh"
	"jobmatch-engine/internal/scheduler"
	"jobmatch-engine/internal/secrets"
	"jobmatch-engine/internal/store"
)

func main() {
	// Engine data dir: use env if provided, else local folder.
	dataDir := os.Getenv("JOBMATCH_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir; a second instance would fight over the db.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("lock failed: %v", err)
	}
	if !locked {
		log.Fatalf("another engine is already running on %s", dataDir)
	}
	defer lock.Unlock()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable. The validated path refuses to
	// boot (or reload) on schema errors like an unknown adapter strategy.
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		return config.LoadValidated(userCfgPath)
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	dbPath := filepath.Join(dataDir, "jobmatch.db")
	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	hub := events.NewHub()

	var refreshStatus atomic.Value
	refreshStatus.Store(refresh.Status{})

	// One flag for cron ticks and manual /refresh/run triggers.
	var refreshRunning atomic.Bool

	runRefresh := func(ctx context.Context, c config.Config, onNew func(int64)) (refresh.Result, error) {
		r := refresh.Runner{DB: db.Pool, Cfg: c, OnNewPosting: onNew}
		return r.RefreshAll(ctx)
	}

	adminToken := func() string {
		c := cfgVal.Load().(config.Config)
		tok, err := secrets.AdminToken(c.AdminToken)
		if err != nil {
			return ""
		}
		return tok
	}

	mux := httpapi.NewMux(httpapi.Deps{
		DB:             db.Pool,
		Hub:            hub,
		CfgVal:         &cfgVal,
		RefreshStatus:  &refreshStatus,
		RefreshRunning: &refreshRunning,
		UserCfgPath:    userCfgPath,
		LoadCfg:        loadCfg,
		RunRefresh:     runRefresh,
		AdminToken:     adminToken,
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Scheduled refresh on the configured cron, plus one run at startup.
	cronRunner, err := scheduler.Start(rootCtx, cfg.Refresh.Cron, "refresh", func(ctx context.Context) error {
		return runScheduledRefresh(ctx, &cfgVal, &refreshStatus, &refreshRunning, hub, runRefresh)
	})
	if err != nil {
		log.Fatalf("scheduler start failed: %v", err)
	}
	defer cronRunner.Stop()

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("engine listening on http://%s (db=%s)", addr, dbPath)

	srv := &http.Server{
		Handler:           httpapi.Chain(mux, httpapi.RequestID, httpapi.AccessLog, httpapi.Recover, httpapi.Cors),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownToken, err := randomToken(16)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("shutdown token: %s", shutdownToken)
	mux.HandleFunc("/shutdown", shutdownHandler(&shutdownToken, srv))

	go func() {
		<-rootCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// runScheduledRefresh mirrors the /refresh/run handler so cron ticks and
// manual runs share one status record and never overlap.
func runScheduledRefresh(
	ctx context.Context,
	cfgVal *atomic.Value,
	refreshStatus *atomic.Value,
	running *atomic.Bool,
	hub *events.Hub,
	run func(ctx context.Context, cfg config.Config, onNew func(int64)) (refresh.Result, error),
) error {
	if !running.CompareAndSwap(false, true) {
		log.Printf("[refresh] already running, skipping tick")
		return nil
	}
	defer running.Store(false)

	st := refreshStatus.Load().(refresh.Status)
	refreshStatus.Store(refresh.Status{
		LastRunAt: time.Now().Format(time.RFC3339),
		Running:   true,
		LastOkAt:  st.LastOkAt,
	})

	cfg := cfgVal.Load().(config.Config)
	res, err := run(ctx, cfg, func(id int64) {
		hub.Publish(events.MakeEvent("", "posting_created", 1, map[string]any{"id": id}))
	})

	now := time.Now().Format(time.RFC3339)
	next := refreshStatus.Load().(refresh.Status)
	next.Running = false
	next.LastRunAt = now
	for _, s := range res.Sources {
		next.LastNew += s.NewCount
		next.LastUpdated += s.UpdatedCount
	}
	next.LastScored = res.ScoredCount
	if err != nil {
		next.LastError = err.Error()
	} else {
		next.LastError = ""
		next.LastOkAt = now
	}
	refreshStatus.Store(next)

	hub.Publish(events.MakeEvent("", "refresh_completed", 1, map[string]any{
		"new":     next.LastNew,
		"updated": next.LastUpdated,
		"scored":  next.LastScored,
		"error":   next.LastError,
	}))
	return err
}
