package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeStats struct{}

func (fakeStats) ActiveConnections() int { return 3 }
func (fakeStats) Accepted() int64        { return 42 }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthAlwaysOK(t *testing.T) {
	hs := NewHealthServer(":0")
	if rec := get(t, hs.Handler(), "/health"); rec.Code != http.StatusOK {
		t.Fatalf("/health = %d", rec.Code)
	}
}

func TestReadyFollowsSetReady(t *testing.T) {
	hs := NewHealthServer(":0")

	if rec := get(t, hs.Handler(), "/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("/ready before bind = %d", rec.Code)
	}
	hs.SetReady(true)
	if rec := get(t, hs.Handler(), "/ready"); rec.Code != http.StatusOK {
		t.Fatalf("/ready after bind = %d", rec.Code)
	}
}

func TestStats(t *testing.T) {
	hs := NewHealthServer(":0")

	var got Stats
	if err := json.NewDecoder(get(t, hs.Handler(), "/stats").Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(Stats{}, got); diff != "" {
		t.Errorf("stats without provider (-want +got):\n%s", diff)
	}

	hs.SetReady(true)
	hs.SetStats(fakeStats{})
	got = Stats{}
	if err := json.NewDecoder(get(t, hs.Handler(), "/stats").Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Stats{Ready: true, ActiveConnections: 3, Accepted: 42}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}
