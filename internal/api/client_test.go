package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/papaburgs/vigilant-umbrella/internal/gate"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		code     int
		expected error
	}{
		{"rate limited", 429, 0, ErrRateLimited},
		{"cooldown conflict", 409, codeCooldownConflict, ErrCooldownActive},
		{"cargo full", 400, codeCargoFull, ErrCargoFull},
		{"cargo exceeds limit", 400, codeCargoExceedsLimit, ErrCargoFull},
		{"insufficient market credits", 400, codeMarketInsufficient, ErrInsufficientFunds},
		{"ship in transit", 400, codeShipInTransit, ErrInvalidState},
		{"not found", 404, 0, ErrNotFound},
		{"server blew up", 500, 0, ErrTransient},
		{"unknown client error", 400, 0, ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.status, tt.code, "boom")
			if !errors.Is(err, tt.expected) {
				t.Errorf("classify(%d, %d) = %v, expected %v", tt.status, tt.code, err, tt.expected)
			}
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	if !Retryable(classify(502, 0, "")) {
		t.Error("5xx should be retryable")
	}
	if !StaleState(classify(409, codeCooldownConflict, "")) {
		t.Error("cooldown conflict should be stale state")
	}
	if !PolicyOutcome(classify(400, codeCargoFull, "")) {
		t.Error("cargo full should be a policy outcome")
	}
	if Retryable(classify(404, 0, "")) {
		t.Error("404 should not be retryable")
	}
}

func TestGetAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/my/agent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing auth header")
		}
		fmt.Fprint(w, `{"data":{"symbol":"BURG","credits":175000,"headquarters":"X1-QD10-A1"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", gate.New(10, 10), 3)
	agent, err := c.GetAgent(context.Background())
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if agent.Symbol != "BURG" || agent.Credits != 175000 {
		t.Errorf("unexpected agent: %+v", agent)
	}
}

// A 429 from the server must be absorbed by the client and gate; the caller
// sees only the eventual success.
func TestRateLimitedRetryIsInvisible(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"slow down","code":429}}`)
			return
		}
		fmt.Fprint(w, `{"data":{"symbol":"BURG","credits":100}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", gate.New(10, 10), 3)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	agent, err := c.GetAgent(ctx)
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if agent.Symbol != "BURG" {
		t.Errorf("unexpected agent: %+v", agent)
	}
	if calls.Load() < 2 {
		t.Errorf("expected at least 2 calls, got %d", calls.Load())
	}
}

func TestNonRetryableSurfacesClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"error":{"message":"ship is on cooldown","code":4000}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", gate.New(10, 10), 3)
	_, err := c.Extract(context.Background(), "BURG-1")
	if !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}
}

func TestListShipsPaged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			// a full page of 20 forces a second request
			fmt.Fprint(w, `{"data":[`)
			for i := 0; i < 20; i++ {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"symbol":"BURG-%d"}`, i+1)
			}
			fmt.Fprint(w, `],"meta":{"total":21,"page":1,"limit":20}}`)
		default:
			fmt.Fprint(w, `{"data":[{"symbol":"BURG-21"}],"meta":{"total":21,"page":2,"limit":20}}`)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", gate.New(10, 10), 3)
	ships, err := c.ListShips(context.Background())
	if err != nil {
		t.Fatalf("ListShips: %v", err)
	}
	if len(ships) != 21 {
		t.Fatalf("expected 21 ships, got %d", len(ships))
	}
	if ships[20].Symbol != "BURG-21" {
		t.Errorf("unexpected last ship: %s", ships[20].Symbol)
	}
}
