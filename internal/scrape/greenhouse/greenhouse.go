// Package greenhouse fetches postings from the Greenhouse board API
// (boards-api.greenhouse.io/v1/boards/<slug>/jobs?content=true).
package greenhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"
	"time"

	"jobmatch-engine/internal/domain"
	"jobmatch-engine/internal/scrape/util"
)

type Client struct {
	source   string
	endpoint string
	hc       *http.Client
	limiter  *util.HostLimiter
}

func New(source, endpoint string, limiter *util.HostLimiter) *Client {
	return &Client{
		source:   source,
		endpoint: endpoint,
		hc:       &http.Client{Timeout: 20 * time.Second},
		limiter:  limiter,
	}
}

func (c *Client) Name() string { return "greenhouse" }

type ghJob struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	Content     string `json:"content"` // HTML, entity-escaped by the API
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
	Departments []struct {
		Name string `json:"name"`
	} `json:"departments"`
}

type ghBody struct {
	Jobs []ghJob `json:"jobs"`
}

func (c *Client) Fetch(ctx context.Context) ([]domain.RawPosting, error) {
	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, c.endpoint); err != nil {
			return nil, err
		}
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	req.Header.Set("User-Agent", "JobMatch/1.0 (+local)")

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("greenhouse get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("greenhouse status %d", res.StatusCode)
	}

	var body ghBody
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("greenhouse decode: %w", err)
	}

	out := make([]domain.RawPosting, 0, len(body.Jobs))
	for _, j := range body.Jobs {
		if j.ID == 0 || j.Title == "" || j.AbsoluteURL == "" {
			log.Printf("[greenhouse:%s] skipping job with missing fields id=%d title=%q", c.source, j.ID, j.Title)
			continue
		}

		desc := html.UnescapeString(j.Content)
		dept := ""
		if len(j.Departments) > 0 {
			dept = j.Departments[0].Name
		}
		loc := util.CleanText(j.Location.Name)
		if loc == "" {
			loc = "Unknown"
		}

		out = append(out, domain.RawPosting{
			ExternalID:         fmt.Sprint(j.ID),
			Title:              util.CleanText(j.Title),
			Location:           loc,
			Department:         util.CleanText(dept),
			Description:        desc,
			URL:                util.CanonicalizeURL(j.AbsoluteURL),
			PartialDescription: len(desc) < 100 || strings.Contains(strings.ToLower(desc), "read more"),
		})
	}
	return out, nil
}
