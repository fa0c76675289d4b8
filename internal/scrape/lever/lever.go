// Package lever fetches postings from the Lever postings API
// (api.lever.co/v0/postings/<slug>?mode=json).
package lever

import (
	"context"
	"encoding/json"
	"fmt"
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

func (c *Client) Name() string { return "lever" }

type leverPosting struct {
	ID         string `json:"id"`
	Text       string `json:"text"` // title
	HostedURL  string `json:"hostedUrl"`
	Categories struct {
		Location string `json:"location"`
		Team     string `json:"team"`
	} `json:"categories"`
	Description      string `json:"description"`      // html
	DescriptionPlain string `json:"descriptionPlain"` // sometimes present
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
		return nil, fmt.Errorf("lever get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("lever status %d", res.StatusCode)
	}

	var postings []leverPosting
	if err := json.NewDecoder(res.Body).Decode(&postings); err != nil {
		return nil, fmt.Errorf("lever decode: %w", err)
	}

	out := make([]domain.RawPosting, 0, len(postings))
	for _, p := range postings {
		if p.ID == "" || p.HostedURL == "" || strings.TrimSpace(p.Text) == "" {
			log.Printf("[lever:%s] skipping posting with missing fields id=%q", c.source, p.ID)
			continue
		}

		desc := p.Description
		if strings.TrimSpace(desc) == "" {
			desc = p.DescriptionPlain
		}
		loc := util.CleanText(p.Categories.Location)
		if loc == "" {
			loc = "Unknown"
		}

		out = append(out, domain.RawPosting{
			ExternalID:         p.ID,
			Title:              util.CleanText(p.Text),
			Location:           loc,
			Department:         util.CleanText(p.Categories.Team),
			Description:        desc,
			URL:                util.CanonicalizeURL(p.HostedURL),
			PartialDescription: len(desc) < 100 || strings.Contains(strings.ToLower(desc), "read more"),
		})
	}
	return out, nil
}
