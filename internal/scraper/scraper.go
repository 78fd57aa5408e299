// Package scraper fetches public storefront content for the AI context
// and performs the health checks used by the site monitor.
//
// Fetches are best-effort: a slow or unreachable site yields an error
// that callers absorb, never an indefinite block.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "Ornabot/1.0 (context builder)"

// CheckResult is one health-check observation.
type CheckResult struct {
	Up         bool          `json:"up"`
	StatusCode int           `json:"status_code"`
	Latency    time.Duration `json:"latency"`
	Err        string        `json:"error,omitempty"`
}

// Scraper fetches and extracts storefront content.
type Scraper struct {
	url    string
	client *http.Client
}

// New creates a Scraper for the given URL with a bounded timeout.
func New(url string, timeout time.Duration) *Scraper {
	return &Scraper{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the storefront page and extracts the title, meta
// description, section headings, and any promo banner into a labeled
// context block.
func (s *Scraper) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching site: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching site: HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing site HTML: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("WEBSITE INFO:\n")

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", title)
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && desc != "" {
		if len(desc) > 200 {
			desc = desc[:200]
		}
		fmt.Fprintf(&sb, "Description: %s\n", desc)
	}
	fmt.Fprintf(&sb, "URL: %s\n", s.url)

	var sections []string
	doc.Find("h2, h3").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if text != "" && len(text) < 50 {
			sections = append(sections, text)
		}
		return len(sections) < 5
	})
	if len(sections) > 0 {
		fmt.Fprintf(&sb, "Sections: %s\n", strings.Join(sections, ", "))
	}

	if promo := firstPromo(doc); promo != "" {
		fmt.Fprintf(&sb, "Current promotion: %s\n", promo)
	}

	return sb.String(), nil
}

// firstPromo finds the first banner/promo/sale/offer-classed element.
func firstPromo(doc *goquery.Document) string {
	promo := ""
	doc.Find(`[class*="banner"], [class*="promo"], [class*="sale"], [class*="offer"]`).
		EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := strings.TrimSpace(sel.Text())
			if text != "" && len(text) < 100 {
				promo = text
				return false
			}
			return true
		})
	return promo
}

// Check performs a single availability probe for the site monitor.
// Returns a result, never an error: a failed probe is an observation.
func (s *Scraper) Check(ctx context.Context) CheckResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return CheckResult{Err: err.Error()}
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return CheckResult{Latency: latency, Err: err.Error()}
	}
	defer resp.Body.Close()

	return CheckResult{
		Up:         resp.StatusCode == http.StatusOK,
		StatusCode: resp.StatusCode,
		Latency:    latency,
	}
}
