// Package verify talks to the game verification oracle used for ranked
// wagers. When the oracle cannot be reached the caller falls back to manual
// evidence, so unavailability is a distinct sentinel rather than a failure.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var ErrUnavailable = errors.New("oracle_unavailable")

// Result is the oracle's view of a finished match.
type Result struct {
	Verified bool   `json:"verified"`
	WinnerID string `json:"winner_id"`
	MatchRef string `json:"match_ref"`
}

type Oracle interface {
	VerifyMatch(ctx context.Context, game, matchRef string) (*Result, error)
}

// HTTPOracle queries a stats API over HTTP.
type HTTPOracle struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPOracle(baseURL, apiKey string, timeout time.Duration) *HTTPOracle {
	return &HTTPOracle{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *HTTPOracle) VerifyMatch(ctx context.Context, game, matchRef string) (*Result, error) {
	if o.baseURL == "" {
		return nil, ErrUnavailable
	}
	u := fmt.Sprintf("%s/v1/matches/%s?game=%s", o.baseURL, url.PathEscape(matchRef), url.QueryEscape(game))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return &Result{Verified: false, MatchRef: matchRef}, nil
	case resp.StatusCode >= 500:
		return nil, ErrUnavailable
	default:
		return nil, fmt.Errorf("oracle status %d", resp.StatusCode)
	}
	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, ErrUnavailable
	}
	if out.MatchRef == "" {
		out.MatchRef = matchRef
	}
	return &out, nil
}
