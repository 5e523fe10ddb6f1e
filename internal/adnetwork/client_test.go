package adnetwork

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmeshcher/coin-rewards/internal/rewards"
)

func TestShowRewarded_Completed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/rewarded/42" {
			t.Fatalf("path = %s, want /api/rewarded/42", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(ViewResult{Status: ViewCompleted}); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := client.ShowRewarded(ctx, 42); err != nil {
		t.Fatalf("ShowRewarded error: %v", err)
	}
}

func TestShowRewarded_EmptyOK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	if err := NewClient(ts.URL).ShowRewarded(context.Background(), 42); err != nil {
		t.Fatalf("200 without body must count as watched, got %v", err)
	}
}

func TestShowRewarded_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		noFill  bool
	}{
		{
			name: "dismissed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(ViewResult{Status: ViewDismissed, Reason: "closed early"})
			},
		},
		{
			name: "no fill",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(ViewResult{Status: ViewNoFill})
			},
			noFill: true,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			noFill: true,
		},
		{
			name: "broken body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			err := NewClient(ts.URL).ShowRewarded(context.Background(), 1)
			if !errors.Is(err, rewards.ErrAdPlaybackFailed) {
				t.Fatalf("expected ErrAdPlaybackFailed, got %v", err)
			}
			if got := errors.Is(err, ErrNoFill); got != tt.noFill {
				t.Fatalf("errors.Is(err, ErrNoFill) = %v, want %v", got, tt.noFill)
			}
		})
	}
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient("")

	if err := client.Ping(context.Background()); !errors.Is(err, rewards.ErrAdServiceUnavailable) {
		t.Fatalf("Ping: expected ErrAdServiceUnavailable, got %v", err)
	}
	if err := client.ShowRewarded(context.Background(), 1); !errors.Is(err, rewards.ErrAdServiceUnavailable) {
		t.Fatalf("ShowRewarded: expected ErrAdServiceUnavailable, got %v", err)
	}
}

func TestNewClient_AddsScheme(t *testing.T) {
	c := NewClient("ads.local:8081/")
	if c.baseURL != "http://ads.local:8081" {
		t.Fatalf("baseURL = %q", c.baseURL)
	}
}
