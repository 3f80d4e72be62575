package rxnorm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/pharmamap/backend/internal/domain"
	"golang.org/x/time/rate"
)

// maxResponseBytes bounds how much of an RxNav response is read into memory
const maxResponseBytes = 1 << 20

// Client handles communication with the RxNav REST API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	retries     int
	debug       bool
}

// NewClient creates a new RxNav API client. rateDelay is the minimum gap
// between requests; RxNav asks clients to stay under 20 requests/second,
// and the batch mapper throttles well below that.
func NewClient(baseURL string, rateDelay, timeout time.Duration, retries int) *Client {
	if rateDelay <= 0 {
		rateDelay = 200 * time.Millisecond
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if retries < 1 {
		retries = 3
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     baseURL,
		rateLimiter: rate.NewLimiter(rate.Every(rateDelay), 1),
		retries:     retries,
	}
}

// SetDebug toggles verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(format string, args ...interface{}) {
	if c.debug {
		log.Printf("[RXNORM] "+format, args...)
	}
}

// SearchByName performs an exact-name lookup and returns the first RXCUI.
// Returns domain.ErrConceptNotFound when RxNorm has no concept for the name.
func (c *Client) SearchByName(ctx context.Context, name string) (string, error) {
	params := url.Values{}
	params.Add("name", name)

	var result idGroupResponse
	if err := c.getJSON(ctx, "rxcui.json", params, &result); err != nil {
		return "", err
	}

	if len(result.IDGroup.RxnormID) == 0 {
		c.debugLog("no concept for name %q", name)
		return "", domain.ErrConceptNotFound
	}

	return result.IDGroup.RxnormID[0], nil
}

// ApproximateSearch runs RxNav's approximate-term match and returns up to
// maxEntries candidates, best-first by the service's own score.
func (c *Client) ApproximateSearch(ctx context.Context, term string, maxEntries int) ([]domain.Candidate, error) {
	params := url.Values{}
	params.Add("term", term)
	params.Add("maxEntries", fmt.Sprintf("%d", maxEntries))

	var result approximateResponse
	if err := c.getJSON(ctx, "approximateTerm.json", params, &result); err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(result.ApproximateGroup.Candidate))
	for _, cand := range result.ApproximateGroup.Candidate {
		candidates = append(candidates, domain.Candidate{
			Rxcui: cand.Rxcui,
			Term:  cand.Term,
			Score: int(cand.Score),
		})
	}

	c.debugLog("approximate search %q returned %d candidates", term, len(candidates))
	return candidates, nil
}

// GetRelatedConcepts returns concepts related to an RXCUI, filtered by term
// type (e.g. "SCD+SBD"). The slice is empty when the concept has none.
func (c *Client) GetRelatedConcepts(ctx context.Context, rxcui, ttyFilter string) ([]domain.RelatedConcept, error) {
	params := url.Values{}
	if ttyFilter != "" {
		params.Add("tty", ttyFilter)
	}

	var result relatedResponse
	endpoint := fmt.Sprintf("rxcui/%s/related.json", url.PathEscape(rxcui))
	if err := c.getJSON(ctx, endpoint, params, &result); err != nil {
		return nil, err
	}

	var concepts []domain.RelatedConcept
	for _, group := range result.RelatedGroup.ConceptGroup {
		for _, prop := range group.ConceptProperties {
			tty := prop.TTY
			if tty == "" {
				tty = group.TTY
			}
			concepts = append(concepts, domain.RelatedConcept{
				Rxcui: prop.Rxcui,
				Name:  prop.Name,
				TTY:   tty,
			})
		}
	}

	c.debugLog("related concepts for %s (%s): %d", rxcui, ttyFilter, len(concepts))
	return concepts, nil
}

// getJSON executes a rate-limited GET with retries and decodes the body.
// 5xx and 429 responses are retried with exponential backoff; other 4xx
// responses fail immediately, with 404 mapped to ErrConceptNotFound.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, params.Encode())
	}

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		// Wait for rate limiter
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			log.Printf("[RXNORM] request error (attempt %d): %v", attempt, err)
			lastErr = err
			if ctx.Err() != nil {
				return err
			}
			c.sleepBeforeRetry(attempt)
			continue
		}

		body, readErr := readLimitedBody(resp.Body, maxResponseBytes)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response: %w", readErr)
			c.sleepBeforeRetry(attempt)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return domain.ErrConceptNotFound
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			log.Printf("[RXNORM] API error (attempt %d) - Status: %d, Body: %s", attempt, resp.StatusCode, string(body))
			lastErr = fmt.Errorf("%w: status %d", domain.ErrRxNormAPIFailure, resp.StatusCode)
			c.sleepBeforeRetry(attempt)
		default:
			return fmt.Errorf("%w: status %d, body: %s", domain.ErrRxNormAPIFailure, resp.StatusCode, string(body))
		}
	}

	log.Printf("[RXNORM] all retries failed for %s", endpoint)
	return lastErr
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "CNOPS-RxNorm-Mapper/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRxNormAPIFailure, err)
	}

	return resp, nil
}

// sleepBeforeRetry backs off unless this was the final attempt
func (c *Client) sleepBeforeRetry(attempt int) {
	if attempt < c.retries {
		time.Sleep(exponentialBackoff(attempt))
	}
}

// exponentialBackoff returns the sleep before the next attempt:
// 500ms, 1s, 2s, ...
func exponentialBackoff(attempt int) time.Duration {
	return 500 * time.Millisecond << (attempt - 1)
}

// readLimitedBody reads at most limit bytes of the response body
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
