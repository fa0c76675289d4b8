package refresh

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmatch-engine/internal/config"
	"jobmatch-engine/internal/domain"
	"jobmatch-engine/internal/scrape"
	"jobmatch-engine/internal/scrape/util"
	"jobmatch-engine/internal/store"
)

type fakeAdapter struct {
	name     string
	postings []domain.RawPosting
	err      error
	hang     bool // block until the fetch context expires
}

func (f fakeAdapter) Name() string { return f.name }

func (f fakeAdapter) Fetch(ctx context.Context) ([]domain.RawPosting, error) {
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.postings, f.err
}

// fakes maps source name to its adapter; unknown names error like the real
// registry does.
func fakeResolver(fakes map[string]fakeAdapter) func(config.Source, *util.HostLimiter) (scrape.Adapter, error) {
	return func(src config.Source, _ *util.HostLimiter) (scrape.Adapter, error) {
		f, ok := fakes[src.Name]
		if !ok {
			return nil, errors.New("unknown adapter")
		}
		return f, nil
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Pool))
	return db.Pool
}

func testCfg(sources ...config.Source) config.Config {
	var cfg config.Config
	cfg.Refresh.SourceTimeoutSeconds = 30
	cfg.Refresh.Workers = 4
	cfg.Sources = sources
	cfg.Weights = config.DefaultWeights()
	cfg.Geography = config.Geography{
		Preferred: []string{"remote"},
		Banned:    []string{"st. louis"},
	}
	return cfg
}

func src(name string) config.Source {
	return config.Source{Name: name, Endpoint: "https://example.com/" + name, Adapter: "jsonfeed"}
}

func raw(ext, title, desc string) domain.RawPosting {
	return domain.RawPosting{
		ExternalID:  ext,
		Title:       title,
		Location:    "Remote",
		Description: desc,
		URL:         "https://example.com/jobs/" + ext,
	}
}

func sourceByName(t *testing.T, db *sql.DB, name string) store.SourceRow {
	t.Helper()
	rows, err := store.ListSources(context.Background(), db)
	require.NoError(t, err)
	for _, r := range rows {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("source %q not found", name)
	return store.SourceRow{}
}

func TestRefreshAllIsolatesSourceFailures(t *testing.T) {
	db := openTestDB(t)

	good := fakeAdapter{name: "jsonfeed", postings: []domain.RawPosting{
		raw("a-1", "VP of Industrial Software", "Own the P&L. Drive digital transformation for industrial IoT. Fully remote."),
		raw("a-2", "Software Engineer", "Build web apps."),
	}}
	bad := fakeAdapter{name: "jsonfeed", err: errors.New("status 503")}

	r := Runner{
		DB:         db,
		Cfg:        testCfg(src("good"), src("bad")),
		NewAdapter: fakeResolver(map[string]fakeAdapter{"good": good, "bad": bad}),
	}

	res, err := r.RefreshAll(context.Background())
	require.NoError(t, err, "one failing source never fails the cycle")
	require.Len(t, res.Sources, 2)

	byName := map[string]SourceResult{}
	for _, s := range res.Sources {
		byName[s.SourceName] = s
	}

	assert.Equal(t, domain.SourceOK, byName["good"].Status)
	assert.Equal(t, 2, byName["good"].NewCount)
	assert.Equal(t, 0, byName["good"].UpdatedCount)

	assert.Equal(t, domain.SourceError, byName["bad"].Status)
	assert.Equal(t, "status 503", byName["bad"].Error)
	assert.Empty(t, byName["bad"].TouchedIDs)

	assert.Equal(t, domain.SourceOK, sourceByName(t, db, "good").AdapterStatus)
	badRow := sourceByName(t, db, "bad")
	assert.Equal(t, domain.SourceError, badRow.AdapterStatus)
	require.NotNil(t, badRow.ErrorMessage)
	assert.Equal(t, "status 503", *badRow.ErrorMessage)

	// Both touched postings got scored.
	assert.Equal(t, 2, res.ScoredCount)
}

func TestRefreshSourceTimeoutIsRecorded(t *testing.T) {
	db := openTestDB(t)

	cfg := testCfg(src("slow"))
	cfg.Refresh.SourceTimeoutSeconds = 1

	r := Runner{
		DB:         db,
		Cfg:        cfg,
		NewAdapter: fakeResolver(map[string]fakeAdapter{"slow": {name: "jsonfeed", hang: true}}),
	}

	start := time.Now()
	res, err := r.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)

	require.Len(t, res.Sources, 1)
	assert.Equal(t, domain.SourceError, res.Sources[0].Status)
	assert.Equal(t, "Timeout", res.Sources[0].Error)

	row := sourceByName(t, db, "slow")
	require.NotNil(t, row.ErrorMessage)
	assert.Equal(t, "Timeout", *row.ErrorMessage)
}

func TestRefreshFailedSourceKeepsPostingsActive(t *testing.T) {
	db := openTestDB(t)

	postings := []domain.RawPosting{raw("a-1", "Director", "Some role.")}
	r := Runner{
		DB:         db,
		Cfg:        testCfg(src("flaky")),
		NewAdapter: fakeResolver(map[string]fakeAdapter{"flaky": {name: "jsonfeed", postings: postings}}),
	}
	res, err := r.RefreshAll(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Sources[0].TouchedIDs, 1)
	id := res.Sources[0].TouchedIDs[0]

	// Next cycle the source errors out: nothing may be deactivated.
	r.NewAdapter = fakeResolver(map[string]fakeAdapter{"flaky": {name: "jsonfeed", err: errors.New("boom")}})
	_, err = r.RefreshAll(context.Background())
	require.NoError(t, err)

	p, err := store.GetPosting(context.Background(), db, id)
	require.NoError(t, err)
	assert.True(t, p.Active, "a failed fetch is not an empty board")
}

func TestRefreshEmptyFetchDeactivatesAll(t *testing.T) {
	db := openTestDB(t)

	r := Runner{
		DB:  db,
		Cfg: testCfg(src("shrinking")),
		NewAdapter: fakeResolver(map[string]fakeAdapter{"shrinking": {
			name: "jsonfeed",
			postings: []domain.RawPosting{
				raw("a-1", "Director", "Some role."),
				raw("a-2", "VP of Sales", "Another role."),
			},
		}}),
	}
	res, err := r.RefreshAll(context.Background())
	require.NoError(t, err)
	ids := res.Sources[0].TouchedIDs
	require.Len(t, ids, 2)

	// The board is now genuinely empty.
	r.NewAdapter = fakeResolver(map[string]fakeAdapter{"shrinking": {name: "jsonfeed", postings: []domain.RawPosting{}}})
	res, err = r.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SourceOK, res.Sources[0].Status)

	for _, id := range ids {
		p, err := store.GetPosting(context.Background(), db, id)
		require.NoError(t, err)
		assert.False(t, p.Active)
	}
}

func TestRefreshCountsNewVersusUpdated(t *testing.T) {
	db := openTestDB(t)

	first := []domain.RawPosting{raw("a-1", "Director", "Some role.")}
	r := Runner{
		DB:         db,
		Cfg:        testCfg(src("s")),
		NewAdapter: fakeResolver(map[string]fakeAdapter{"s": {name: "jsonfeed", postings: first}}),
	}

	var created []int64
	r.OnNewPosting = func(id int64) { created = append(created, id) }

	res, err := r.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sources[0].NewCount)
	assert.Equal(t, 0, res.Sources[0].UpdatedCount)
	assert.Len(t, created, 1)

	second := []domain.RawPosting{
		raw("a-1", "Director", "Some role, updated."),
		raw("a-2", "VP of Sales", "New role."),
	}
	r.NewAdapter = fakeResolver(map[string]fakeAdapter{"s": {name: "jsonfeed", postings: second}})

	created = nil
	res, err = r.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sources[0].NewCount)
	assert.Equal(t, 1, res.Sources[0].UpdatedCount)
	assert.Len(t, created, 1, "only first-seen postings fire the callback")
}

func TestRefreshScoresTouchedPostings(t *testing.T) {
	db := openTestDB(t)

	r := Runner{
		DB:  db,
		Cfg: testCfg(src("s")),
		NewAdapter: fakeResolver(map[string]fakeAdapter{"s": {
			name: "jsonfeed",
			postings: []domain.RawPosting{
				raw("a-1", "VP of Industrial Software",
					"<p>Own the P&amp;L. Drive digital transformation for industrial IoT platforms.</p><p>Fully remote.</p>"),
			},
		}}),
	}

	res, err := r.RefreshAll(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Sources[0].TouchedIDs, 1)
	assert.Equal(t, 1, res.ScoredCount)

	id := res.Sources[0].TouchedIDs[0]
	ev, err := store.LatestEvaluation(context.Background(), db, id)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, domain.ActionApply, ev.Action)
	assert.Equal(t, 100, ev.FitScore)

	// The persisted description is plain text, not HTML.
	p, err := store.GetPosting(context.Background(), db, id)
	require.NoError(t, err)
	assert.NotContains(t, p.Description, "<p>")
	assert.Contains(t, p.Description, "P&L")
}
