// Package refresh runs one fetch-and-reconcile cycle across all configured
// sources in parallel, then re-scores every touched posting.
package refresh

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"jobmatch-engine/internal/config"
	"jobmatch-engine/internal/domain"
	"jobmatch-engine/internal/normalize"
	"jobmatch-engine/internal/rank"
	"jobmatch-engine/internal/scrape"
	"jobmatch-engine/internal/scrape/util"
	"jobmatch-engine/internal/store"
)

type Runner struct {
	DB  *sql.DB
	Cfg config.Config

	// Called after a source's transaction commits, once per first-seen
	// posting. Optional.
	OnNewPosting func(postingID int64)

	// Adapter resolution (inject for testability); nil means scrape.NewAdapter.
	NewAdapter func(src config.Source, limiter *util.HostLimiter) (scrape.Adapter, error)
}

// RefreshAll fans out one worker per source, bounded by the configured
// pool size. A timeout or error in one source is recorded on that source
// and never aborts the cycle; the store itself is the only shared resource
// and its single-writer pool serializes the per-source transactions.
func (r *Runner) RefreshAll(ctx context.Context) (Result, error) {
	timeout := time.Duration(r.Cfg.Refresh.SourceTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	workers := r.Cfg.Refresh.Workers
	if workers <= 0 {
		workers = 4
	}

	limiter := util.NewHostLimiter(1.0, 2)

	var g errgroup.Group
	g.SetLimit(workers)

	resultsCh := make(chan SourceResult, len(r.Cfg.Sources))

	for _, src := range r.Cfg.Sources {
		src := src
		g.Go(func() error {
			log.Printf("[refresh:%s] running...", src.Name)
			res := r.refreshSource(ctx, src, limiter, timeout)
			log.Printf("[refresh:%s] status=%s new=%d updated=%d err=%q",
				src.Name, res.Status, res.NewCount, res.UpdatedCount, res.Error)
			resultsCh <- res
			return nil
		})
	}

	_ = g.Wait()
	close(resultsCh)

	var out Result
	for res := range resultsCh {
		out.Sources = append(out.Sources, res)
		out.TouchedIDs = append(out.TouchedIDs, res.TouchedIDs...)
	}

	scored, err := r.scoreTouched(ctx, out.TouchedIDs)
	if err != nil {
		return out, fmt.Errorf("score touched postings: %w", err)
	}
	out.ScoredCount = scored

	return out, nil
}

// refreshSource is one source's whole cycle: resolve the source row,
// fetch with a hard wall-clock budget, reconcile inside one transaction,
// and record health whatever happened.
func (r *Runner) refreshSource(ctx context.Context, src config.Source, limiter *util.HostLimiter, timeout time.Duration) SourceResult {
	res := SourceResult{SourceName: src.Name, Status: domain.SourceError}

	sourceID, err := store.UpsertSource(ctx, r.DB, src)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.SourceID = sourceID

	fail := func(msg string) SourceResult {
		res.Status = domain.SourceError
		res.Error = msg
		if serr := store.UpdateSourceStatus(ctx, r.DB, sourceID, domain.SourceError, msg); serr != nil {
			log.Printf("[refresh:%s] record status failed: %v", src.Name, serr)
		}
		return res
	}

	newAdapter := r.NewAdapter
	if newAdapter == nil {
		newAdapter = scrape.NewAdapter
	}
	adapter, err := newAdapter(src, limiter)
	if err != nil {
		return fail(err.Error())
	}

	fctx, cancel := context.WithTimeout(ctx, timeout)
	raw, err := adapter.Fetch(fctx)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fail("Timeout")
		}
		return fail(err.Error())
	}

	for i := range raw {
		raw[i].Description = normalize.HTMLToText(raw[i].Description)
	}

	// Upserts and mark-missing are all-or-nothing: a crash mid-cycle must
	// not leave some postings updated and others wrongly deactivated.
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fail(err.Error())
	}

	var newIDs []int64
	seenIDs := make([]string, 0, len(raw))
	for _, p := range raw {
		id, isNew, err := store.UpsertPosting(ctx, tx, sourceID, p)
		if err != nil {
			_ = tx.Rollback()
			return fail(err.Error())
		}
		res.TouchedIDs = append(res.TouchedIDs, id)
		seenIDs = append(seenIDs, p.ExternalID)
		if isNew {
			res.NewCount++
			newIDs = append(newIDs, id)
		} else {
			res.UpdatedCount++
		}
	}

	if err := store.MarkMissingInactive(ctx, tx, sourceID, seenIDs); err != nil {
		_ = tx.Rollback()
		return fail(err.Error())
	}

	if err := tx.Commit(); err != nil {
		return fail(err.Error())
	}

	if err := store.UpdateSourceStatus(ctx, r.DB, sourceID, domain.SourceOK, ""); err != nil {
		log.Printf("[refresh:%s] record status failed: %v", src.Name, err)
	}
	res.Status = domain.SourceOK

	if r.OnNewPosting != nil {
		for _, id := range newIDs {
			r.OnNewPosting(id)
		}
	}

	return res
}

// scoreTouched re-scores every touched posting and persists a fresh
// evaluation. Scoring is pure, so sequential is fine; the history cap is
// enforced by the store on each insert.
func (r *Runner) scoreTouched(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	postings, err := store.GetPostingsByIDs(ctx, r.DB, ids)
	if err != nil {
		return 0, err
	}

	engine := rank.NewEngine(r.Cfg)
	scored := 0
	for _, p := range postings {
		ev := engine.Score(rank.Job{
			ID:                 p.ID,
			Title:              p.Title,
			SourceName:         p.SourceName,
			Location:           p.Location,
			Description:        p.Description,
			PartialDescription: p.PartialDescription,
		})
		if err := store.InsertEvaluation(ctx, r.DB, ev); err != nil {
			return scored, err
		}
		scored++
	}
	return scored, nil
}
