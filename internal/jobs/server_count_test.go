package jobs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/glotchimo/armada/internal/shards"
)

type fakeCountFleet struct {
	count    int
	presence *shards.PresenceRequest
}

func (f *fakeCountFleet) ServerCount(ctx context.Context) (int, error) {
	return f.count, nil
}

func (f *fakeCountFleet) SetPresence(ctx context.Context, req shards.PresenceRequest) error {
	f.presence = &req
	return nil
}

func TestServerCountPublish(t *testing.T) {
	var goodBody, goodAuth string
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		goodBody = string(buf)
		goodAuth = r.Header.Get("Authorization")
	}))
	defer good.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusInternalServerError)
	}))
	defer broken.Close()

	fleet := &fakeCountFleet{count: 8}
	sites := []BotSite{
		{Name: "broken", URL: broken.URL, Body: `{"servers":{{SERVER_COUNT}}}`, Enabled: true},
		{Name: "good", URL: good.URL, Authorization: "site-key", Body: `{"server_count":{{SERVER_COUNT}}}`, Enabled: true},
		{Name: "disabled", URL: "http://127.0.0.1:1", Body: `{}`, Enabled: false},
	}

	p := NewServerCountPublisher(fleet, sites, "https://twitch.tv/x", discardLogger())
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The broken site must not stop the good one from being updated.
	if goodBody != `{"server_count":8}` {
		t.Errorf("got body %q", goodBody)
	}
	if goodAuth != "site-key" {
		t.Errorf("got authorization %q", goodAuth)
	}

	if fleet.presence == nil {
		t.Fatal("presence never updated")
	}
	if fleet.presence.Type != "STREAMING" || fleet.presence.Name != "to 8 servers" {
		t.Errorf("got presence %+v", fleet.presence)
	}
}

func TestLoadSites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.json")
	data := `[{"name":"top.gg","url":"https://top.gg/api","authorization":"k","body":"{}","enabled":true}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	sites, err := LoadSites(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sites) != 1 || sites[0].Name != "top.gg" || !sites[0].Enabled {
		t.Errorf("got %+v", sites)
	}

	if sites, err := LoadSites(""); err != nil || sites != nil {
		t.Errorf("empty path: got %v, %v", sites, err)
	}

	if _, err := LoadSites(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
