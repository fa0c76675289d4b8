// Package jsonfeed fetches postings from a generic careers JSON endpoint:
// either a top-level array of jobs or an object with a "jobs" key. This is
// the strategy most employer career APIs (Siemens-style portals and
// friends) can be pointed at without a dedicated client.
package jsonfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
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

func (c *Client) Name() string { return "jsonfeed" }

type feedJob struct {
	ID            json.Number `json:"id"`
	RequisitionID string      `json:"requisitionId"`
	Title         string      `json:"title"`
	Location      string      `json:"location"`
	Department    string      `json:"department"`
	Description   string      `json:"description"`
	URL           string      `json:"url"`
	ApplyURL      string      `json:"applyUrl"`
}

type feedBody struct {
	Jobs []feedJob `json:"jobs"`
}

func (c *Client) Fetch(ctx context.Context) ([]domain.RawPosting, error) {
	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, c.endpoint); err != nil {
			return nil, err
		}
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	req.Header.Set("User-Agent", "JobMatch/1.0 (+local)")
	req.Header.Set("Accept", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jsonfeed get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("jsonfeed status %d", res.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(res.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("jsonfeed read: %w", err)
	}

	// Accept both {"jobs":[...]} and a bare array.
	var body feedBody
	if err := json.Unmarshal(b, &body); err != nil {
		var arr []feedJob
		if err2 := json.Unmarshal(b, &arr); err2 != nil {
			return nil, fmt.Errorf("jsonfeed decode: %w", err)
		}
		body.Jobs = arr
	}
	jobs := body.Jobs

	out := make([]domain.RawPosting, 0, len(jobs))
	for _, j := range jobs {
		externalID := strings.TrimSpace(j.ID.String())
		if externalID == "" {
			externalID = strings.TrimSpace(j.RequisitionID)
		}
		url := j.URL
		if url == "" {
			url = j.ApplyURL
		}

		if externalID == "" || j.Title == "" || j.Location == "" || j.Description == "" || url == "" {
			log.Printf("[jsonfeed:%s] skipping job with missing fields id=%q title=%q", c.source, externalID, j.Title)
			continue
		}

		out = append(out, domain.RawPosting{
			ExternalID:         externalID,
			Title:              util.CleanText(j.Title),
			Location:           util.CleanText(j.Location),
			Department:         util.CleanText(j.Department),
			Description:        j.Description,
			URL:                util.CanonicalizeURL(url),
			PartialDescription: looksPartial(j.Description),
		})
	}
	return out, nil
}

func looksPartial(desc string) bool {
	return len(desc) < 100 || strings.Contains(strings.ToLower(desc), "read more")
}
