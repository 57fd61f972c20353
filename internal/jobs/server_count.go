package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/graxinc/errutil"

	"github.com/glotchimo/armada/internal/shards"
)

// serverCountPlaceholder is substituted with the live count in each site's
// body template.
const serverCountPlaceholder = "{{SERVER_COUNT}}"

// BotSite is one bot directory the fleet publishes its server count to.
type BotSite struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	Authorization string `json:"authorization"`
	Body          string `json:"body"`
	Enabled       bool   `json:"enabled"`
}

// LoadSites reads a bot site list from a JSON file. An empty path means no
// sites.
func LoadSites(path string) ([]BotSite, error) {
	if path == "" {
		return nil, nil
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errutil.With(err)
	}

	var sites []BotSite
	if err := json.Unmarshal(buf, &sites); err != nil {
		return nil, errutil.With(err)
	}
	return sites, nil
}

// Fleet is the slice of the shard manager the server-count job uses.
type Fleet interface {
	ServerCount(ctx context.Context) (int, error)
	SetPresence(ctx context.Context, req shards.PresenceRequest) error
}

// ServerCountPublisher refreshes the fleet's presence with its server count
// and pushes the count to each configured bot directory.
type ServerCountPublisher struct {
	fleet     Fleet
	sites     []BotSite
	streamURL string
	client    *http.Client
	log       *slog.Logger
}

func NewServerCountPublisher(fleet Fleet, sites []BotSite, streamURL string, log *slog.Logger) *ServerCountPublisher {
	return &ServerCountPublisher{
		fleet:     fleet,
		sites:     sites,
		streamURL: streamURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		log:       log,
	}
}

// Run fetches the fleet-wide count, updates presence, and posts to every
// enabled site. A failing site is logged and skipped so the rest still get
// the update.
func (p *ServerCountPublisher) Run(ctx context.Context) error {
	count, err := p.fleet.ServerCount(ctx)
	if err != nil {
		return errutil.With(err)
	}

	presence := shards.PresenceRequest{
		Type: "STREAMING",
		Name: fmt.Sprintf("to %d servers", count),
		URL:  p.streamURL,
	}
	if err := p.fleet.SetPresence(ctx, presence); err != nil {
		return errutil.With(err)
	}

	for _, site := range p.sites {
		if !site.Enabled {
			continue
		}
		if err := p.publish(ctx, site, count); err != nil {
			p.log.Error("server count publish failed", "site", site.Name, "error", err)
		}
	}
	return nil
}

func (p *ServerCountPublisher) publish(ctx context.Context, site BotSite, count int) error {
	body := strings.ReplaceAll(site.Body, serverCountPlaceholder, strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, site.URL, strings.NewReader(body))
	if err != nil {
		return errutil.With(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if site.Authorization != "" {
		req.Header.Set("Authorization", site.Authorization)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return errutil.With(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errutil.With(fmt.Errorf("site returned %d", resp.StatusCode))
	}
	return nil
}
