package jsonfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// Long enough to not look partial, and newline-free so it can sit inside
// a JSON string literal.
const fullDesc = "Own the P&L for our industrial IoT line. Drive digital transformation across all plants. This role reports to the CEO and is fully remote within Europe."

func TestFetchJobsObject(t *testing.T) {
	srv := serve(t, `{"jobs":[
		{"id": 101, "title": "VP of Engineering", "location": "Berlin",
		 "description": "`+fullDesc+`",
		 "url": "https://example.com/jobs/101?utm_source=feed"}
	]}`)

	c := New("siemens", srv.URL, nil)
	got, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "101", got[0].ExternalID)
	assert.Equal(t, "VP of Engineering", got[0].Title)
	assert.Equal(t, "https://example.com/jobs/101", got[0].URL, "tracking params stripped")
	assert.False(t, got[0].PartialDescription)
}

func TestFetchBareArray(t *testing.T) {
	srv := serve(t, `[
		{"requisitionId": "R-77", "title": "Director", "location": "Munich",
		 "description": "`+fullDesc+`", "applyUrl": "https://example.com/r/77"}
	]`)

	c := New("siemens", srv.URL, nil)
	got, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "R-77", got[0].ExternalID)
	assert.Equal(t, "https://example.com/r/77", got[0].URL)
}

func TestFetchSkipsIncompleteJobs(t *testing.T) {
	srv := serve(t, `{"jobs":[
		{"id": 1, "title": "", "location": "Berlin", "description": "`+fullDesc+`", "url": "https://example.com/1"},
		{"id": 2, "title": "Director", "location": "Berlin", "description": "`+fullDesc+`", "url": "https://example.com/2"}
	]}`)

	c := New("siemens", srv.URL, nil)
	got, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1, "incomplete rows are skipped, not fatal")
	assert.Equal(t, "2", got[0].ExternalID)
}

func TestFetchFlagsPartialDescriptions(t *testing.T) {
	srv := serve(t, `{"jobs":[
		{"id": 1, "title": "Director", "location": "Berlin", "description": "Short teaser.", "url": "https://example.com/1"},
		{"id": 2, "title": "Director", "location": "Berlin",
		 "description": "`+fullDesc+` Click to read more on our site.", "url": "https://example.com/2"}
	]}`)

	c := New("siemens", srv.URL, nil)
	got, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].PartialDescription, "too short")
	assert.True(t, got[1].PartialDescription, "read-more marker")
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := New("siemens", srv.URL, nil)
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "503"))
}

func TestFetchBadJSON(t *testing.T) {
	srv := serve(t, `not json at all`)
	c := New("siemens", srv.URL, nil)
	_, err := c.Fetch(context.Background())
	assert.Error(t, err)
}
