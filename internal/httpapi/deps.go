package httpapi

import (
	"context"
	"database/sql"
	"sync/atomic"

	"jobmatch-engine/internal/config"
	"jobmatch-engine/internal/events"
	"jobmatch-engine/internal/refresh"
)

type Deps struct {
	DB *sql.DB

	Hub *events.Hub

	// Atomic stores
	CfgVal        *atomic.Value // stores config.Config
	RefreshStatus *atomic.Value // stores refresh.Status

	// Claimed via CompareAndSwap so a cron tick and a manual trigger can't
	// start overlapping cycles. Shared with the scheduler.
	RefreshRunning *atomic.Bool

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Refresh entrypoint (inject for testability)
	RunRefresh func(ctx context.Context, cfg config.Config, onNewPosting func(int64)) (refresh.Result, error)

	// Bearer token guarding mutating routes; empty disables the guard.
	AdminToken func() string
}
