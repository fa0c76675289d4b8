package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmatch-engine/internal/config"
	"jobmatch-engine/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db.Pool))
	return db.Pool
}

func seedSource(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	id, err := UpsertSource(context.Background(), db, config.Source{
		Name: name, Endpoint: "https://example.com/jobs", Adapter: "jsonfeed",
	})
	require.NoError(t, err)
	return id
}

func rawPosting(extID, title string) domain.RawPosting {
	return domain.RawPosting{
		ExternalID:  extID,
		Title:       title,
		Location:    "Berlin, Germany",
		Description: "Some description.",
		URL:         "https://example.com/jobs/" + extID,
	}
}

func TestUpsertSourceIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := seedSource(t, db, "siemens")
	second, err := UpsertSource(ctx, db, config.Source{
		Name: "siemens", Endpoint: "https://other.example.com", Adapter: "lever",
	})
	require.NoError(t, err)
	assert.Equal(t, first, second, "same name resolves to the same row")

	rows, err := ListSources(ctx, db)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://other.example.com", rows[0].Endpoint)
	assert.Equal(t, "lever", rows[0].Adapter)
}

func TestUpdateSourceStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	id := seedSource(t, db, "siemens")

	require.NoError(t, UpdateSourceStatus(ctx, db, id, domain.SourceError, "Timeout"))
	rows, err := ListSources(ctx, db)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.SourceError, rows[0].AdapterStatus)
	require.NotNil(t, rows[0].ErrorMessage)
	assert.Equal(t, "Timeout", *rows[0].ErrorMessage)
	assert.Nil(t, rows[0].LastSuccessfulFetch, "failure does not move the ok timestamp")

	require.NoError(t, UpdateSourceStatus(ctx, db, id, domain.SourceOK, ""))
	rows, err = ListSources(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceOK, rows[0].AdapterStatus)
	assert.Nil(t, rows[0].ErrorMessage)
	assert.NotNil(t, rows[0].LastSuccessfulFetch)
}

func TestUpsertPostingPreservesReviewStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	srcID := seedSource(t, db, "siemens")

	id, isNew, err := UpsertPosting(ctx, db, srcID, rawPosting("req-1", "Director of Engineering"))
	require.NoError(t, err)
	assert.True(t, isNew)

	require.NoError(t, UpdateReviewStatus(ctx, db, id, domain.ReviewIgnored))

	// Same external id comes around again with fresh content.
	id2, isNew2, err := UpsertPosting(ctx, db, srcID, rawPosting("req-1", "Director of Platform Engineering"))
	require.NoError(t, err)
	assert.False(t, isNew2)
	assert.Equal(t, id, id2)

	p, err := GetPosting(ctx, db, id)
	require.NoError(t, err)
	assert.Equal(t, "Director of Platform Engineering", p.Title)
	assert.Equal(t, domain.ReviewIgnored, p.UserReviewStatus, "refresh never touches the review status")
	assert.True(t, p.Active)
}

func TestUpsertPostingScopedBySource(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	a := seedSource(t, db, "siemens")
	b := seedSource(t, db, "bosch")

	idA, newA, err := UpsertPosting(ctx, db, a, rawPosting("req-1", "Director"))
	require.NoError(t, err)
	idB, newB, err := UpsertPosting(ctx, db, b, rawPosting("req-1", "Director"))
	require.NoError(t, err)

	assert.True(t, newA)
	assert.True(t, newB)
	assert.NotEqual(t, idA, idB, "external ids only collide within one source")
}

func TestMarkMissingInactive(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	srcID := seedSource(t, db, "siemens")

	id1, _, err := UpsertPosting(ctx, db, srcID, rawPosting("req-1", "Director"))
	require.NoError(t, err)
	id2, _, err := UpsertPosting(ctx, db, srcID, rawPosting("req-2", "VP of Sales"))
	require.NoError(t, err)

	require.NoError(t, MarkMissingInactive(ctx, db, srcID, []string{"req-1"}))

	p1, err := GetPosting(ctx, db, id1)
	require.NoError(t, err)
	assert.True(t, p1.Active)

	p2, err := GetPosting(ctx, db, id2)
	require.NoError(t, err)
	assert.False(t, p2.Active)

	// A re-appearing posting is reactivated by the next upsert.
	_, isNew, err := UpsertPosting(ctx, db, srcID, rawPosting("req-2", "VP of Sales"))
	require.NoError(t, err)
	assert.False(t, isNew)
	p2, err = GetPosting(ctx, db, id2)
	require.NoError(t, err)
	assert.True(t, p2.Active)
}

func TestMarkMissingEmptyFetchDeactivatesAll(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	srcID := seedSource(t, db, "siemens")

	id1, _, err := UpsertPosting(ctx, db, srcID, rawPosting("req-1", "Director"))
	require.NoError(t, err)
	id2, _, err := UpsertPosting(ctx, db, srcID, rawPosting("req-2", "VP of Sales"))
	require.NoError(t, err)

	require.NoError(t, MarkMissingInactive(ctx, db, srcID, nil))

	for _, id := range []int64{id1, id2} {
		p, err := GetPosting(ctx, db, id)
		require.NoError(t, err)
		assert.False(t, p.Active)
	}
}

func TestMarkMissingLeavesOtherSourcesAlone(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	a := seedSource(t, db, "siemens")
	b := seedSource(t, db, "bosch")

	_, _, err := UpsertPosting(ctx, db, a, rawPosting("req-1", "Director"))
	require.NoError(t, err)
	idB, _, err := UpsertPosting(ctx, db, b, rawPosting("req-1", "Director"))
	require.NoError(t, err)

	require.NoError(t, MarkMissingInactive(ctx, db, a, nil))

	p, err := GetPosting(ctx, db, idB)
	require.NoError(t, err)
	assert.True(t, p.Active)
}

func TestUpdateReviewStatusUnknownPosting(t *testing.T) {
	db := openTestDB(t)
	err := UpdateReviewStatus(context.Background(), db, 9999, domain.ReviewRead)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func evalFor(postingID int64, fit int, action string) domain.Evaluation {
	return domain.Evaluation{
		PostingID: postingID,
		FitScore:  fit,
		Action:    action,
		Summary:   "summary",
		Concerns:  []domain.Concern{{Type: "No P&L ownership", Evidence: "none found"}},
	}
}

func TestEvaluationHistoryCap(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	srcID := seedSource(t, db, "siemens")
	postingID, _, err := UpsertPosting(ctx, db, srcID, rawPosting("req-1", "Director"))
	require.NoError(t, err)

	for fit := 1; fit <= 5; fit++ {
		require.NoError(t, InsertEvaluation(ctx, db, evalFor(postingID, fit, domain.ActionSkip)))
	}

	evals, err := ListEvaluations(ctx, db, postingID)
	require.NoError(t, err)
	require.Len(t, evals, 3, "history is capped at three snapshots")

	// Newest first, and the oldest two were the ones pruned.
	assert.Equal(t, 5, evals[0].FitScore)
	assert.Equal(t, 4, evals[1].FitScore)
	assert.Equal(t, 3, evals[2].FitScore)
}

func TestLatestEvaluation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	srcID := seedSource(t, db, "siemens")
	postingID, _, err := UpsertPosting(ctx, db, srcID, rawPosting("req-1", "Director"))
	require.NoError(t, err)

	got, err := LatestEvaluation(ctx, db, postingID)
	require.NoError(t, err)
	assert.Nil(t, got, "never scored yet")

	require.NoError(t, InsertEvaluation(ctx, db, evalFor(postingID, 42, domain.ActionSkip)))
	require.NoError(t, InsertEvaluation(ctx, db, evalFor(postingID, 77, domain.ActionApply)))

	got, err = LatestEvaluation(ctx, db, postingID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 77, got.FitScore)
	assert.Equal(t, domain.ActionApply, got.Action)
	require.Len(t, got.Concerns, 1)
	assert.Equal(t, "No P&L ownership", got.Concerns[0].Type)
}

func TestListActivePostingsRankingAndFilter(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	srcID := seedSource(t, db, "siemens")

	mk := func(ext string, fit int, action string) int64 {
		id, _, err := UpsertPosting(ctx, db, srcID, rawPosting(ext, "Role "+ext))
		require.NoError(t, err)
		require.NoError(t, InsertEvaluation(ctx, db, evalFor(id, fit, action)))
		return id
	}

	apply := mk("a", 90, domain.ActionApply)
	watch := mk("b", 65, domain.ActionWatch)
	skip := mk("c", 10, domain.ActionSkip)

	// Inactive postings never appear.
	inactive, _, err := UpsertPosting(ctx, db, srcID, rawPosting("d", "Role d"))
	require.NoError(t, err)
	require.NoError(t, InsertEvaluation(ctx, db, evalFor(inactive, 99, domain.ActionApply)))
	require.NoError(t, MarkMissingInactive(ctx, db, srcID, []string{"a", "b", "c"}))

	all, err := ListActivePostings(ctx, db, ListPostingsOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, apply, all[0].ID, "ordered by fit score desc")
	assert.Equal(t, watch, all[1].ID)
	assert.Equal(t, skip, all[2].ID)

	watchUp, err := ListActivePostings(ctx, db, ListPostingsOpts{MinAction: domain.ActionWatch})
	require.NoError(t, err)
	require.Len(t, watchUp, 2)

	applyOnly, err := ListActivePostings(ctx, db, ListPostingsOpts{MinAction: domain.ActionApply})
	require.NoError(t, err)
	require.Len(t, applyOnly, 1)
	assert.Equal(t, apply, applyOnly[0].ID)

	n, err := CountActivePostings(ctx, db, domain.ActionWatch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestListActivePostingsPagination(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	srcID := seedSource(t, db, "siemens")

	for i, fit := range []int{90, 80, 70} {
		ext := string(rune('a' + i))
		id, _, err := UpsertPosting(ctx, db, srcID, rawPosting(ext, "Role "+ext))
		require.NoError(t, err)
		require.NoError(t, InsertEvaluation(ctx, db, evalFor(id, fit, domain.ActionApply)))
	}

	page, err := ListActivePostings(ctx, db, ListPostingsOpts{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, page[0].FitScore)
	assert.Equal(t, 80, *page[0].FitScore)
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	srcID := seedSource(t, db, "siemens")

	for _, tc := range []struct {
		ext    string
		fit    int
		action string
	}{
		{"a", 90, domain.ActionApply},
		{"b", 80, domain.ActionApply},
		{"c", 65, domain.ActionWatch},
		{"d", 10, domain.ActionSkip},
	} {
		id, _, err := UpsertPosting(ctx, db, srcID, rawPosting(tc.ext, "Role "+tc.ext))
		require.NoError(t, err)
		require.NoError(t, InsertEvaluation(ctx, db, evalFor(id, tc.fit, tc.action)))
	}

	stats, err := GetStats(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, Stats{Apply: 2, Watch: 1, Skip: 1, Total: 4}, stats)
}
