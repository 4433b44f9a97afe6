package verify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestVerifyMatchOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("auth header = %q", got)
		}
		if r.URL.Path != "/v1/matches/m-123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("game"); got != "valorant" {
			t.Errorf("game = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"verified": true, "winner_id": "u1", "match_ref": "m-123"}`))
	}))
	defer srv.Close()

	o := NewHTTPOracle(srv.URL, "secret", time.Second)
	res, err := o.VerifyMatch(context.Background(), "valorant", "m-123")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Verified || res.WinnerID != "u1" || res.MatchRef != "m-123" {
		t.Fatalf("result: %+v", res)
	}
}

func TestVerifyMatchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	o := NewHTTPOracle(srv.URL, "", time.Second)
	res, err := o.VerifyMatch(context.Background(), "valorant", "m-404")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Verified || res.MatchRef != "m-404" {
		t.Fatalf("result: %+v", res)
	}
}

func TestVerifyMatchUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	o := NewHTTPOracle(srv.URL, "", time.Second)
	if _, err := o.VerifyMatch(context.Background(), "valorant", "m-1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("5xx: want ErrUnavailable, got %v", err)
	}

	o = NewHTTPOracle("", "", time.Second)
	if _, err := o.VerifyMatch(context.Background(), "valorant", "m-1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("no base url: want ErrUnavailable, got %v", err)
	}

	// Unreachable endpoint.
	o = NewHTTPOracle("http://127.0.0.1:1", "", 100*time.Millisecond)
	if _, err := o.VerifyMatch(context.Background(), "valorant", "m-1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("unreachable: want ErrUnavailable, got %v", err)
	}
}

func TestVerifyMatchClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	o := NewHTTPOracle(srv.URL, "", time.Second)
	_, err := o.VerifyMatch(context.Background(), "valorant", "m-1")
	if err == nil || errors.Is(err, ErrUnavailable) {
		t.Fatalf("4xx should be a hard error, got %v", err)
	}
}

func TestVerifyMatchBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	o := NewHTTPOracle(srv.URL, "", time.Second)
	if _, err := o.VerifyMatch(context.Background(), "valorant", "m-1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("bad body: want ErrUnavailable, got %v", err)
	}
}
