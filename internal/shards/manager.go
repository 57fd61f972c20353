package shards

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/graxinc/errutil"
	"golang.org/x/sync/errgroup"

	"github.com/glotchimo/armada/internal/utils"
)

const defaultRespawnDelay = 5 * time.Second

// Options configures a worker fleet.
type Options struct {
	// BotPath is the worker binary to spawn, one process per shard.
	BotPath string

	// Token is the bot token handed to every worker.
	Token string

	// TotalShards is the fleet-wide shard count, which may exceed the
	// number of shards this process runs.
	TotalShards int

	// ShardList is the set of shard IDs this process is responsible for.
	ShardList []int

	// RPCBasePort is the loopback port of shard 0's RPC server; shard N
	// listens on RPCBasePort+N.
	RPCBasePort int

	// RespawnDelay is the pause before restarting an exited worker.
	RespawnDelay time.Duration

	// Env is extra environment passed through to every worker.
	Env []string
}

// Worker is one supervised shard process.
type Worker struct {
	ID   int
	addr string

	mu      sync.Mutex
	cmd     *exec.Cmd
	started time.Time
}

// ShardStatus is one shard's slot in a fleet-wide status report. A shard
// that could not be reached keeps its slot with Err set, so one bad worker
// never hides the rest.
type ShardStatus struct {
	ID         int
	Ready      bool
	Guilds     int
	UptimeSecs int64
	Err        error
}

// Manager spawns and supervises one worker process per assigned shard and
// runs enumerated operations across the fleet.
type Manager struct {
	opts    Options
	log     *slog.Logger
	client  *http.Client
	workers []*Worker

	started  time.Time
	stopping atomic.Bool
}

func NewManager(opts Options, log *slog.Logger) *Manager {
	if opts.RespawnDelay <= 0 {
		opts.RespawnDelay = defaultRespawnDelay
	}

	workers := make([]*Worker, 0, len(opts.ShardList))
	for _, id := range opts.ShardList {
		workers = append(workers, &Worker{
			ID:   id,
			addr: fmt.Sprintf("http://127.0.0.1:%d", opts.RPCBasePort+id),
		})
	}

	return &Manager{
		opts:    opts,
		log:     log,
		client:  &http.Client{Timeout: 10 * time.Second},
		workers: workers,
	}
}

// Start spawns every assigned shard's worker. It fails outright when the
// shard list is empty rather than running a fleet that serves nothing.
func (m *Manager) Start() error {
	if len(m.workers) == 0 {
		return errutil.With(ErrNoShards)
	}

	m.started = time.Now()
	for _, w := range m.workers {
		if err := m.spawn(w); err != nil {
			return errutil.With(err)
		}
		m.log.Info("shard worker spawned", "shard_id", w.ID)
	}
	return nil
}

// Stop signals every worker and stops respawning.
func (m *Manager) Stop() {
	m.stopping.Store(true)
	for _, w := range m.workers {
		w.mu.Lock()
		if w.cmd != nil && w.cmd.Process != nil {
			w.cmd.Process.Signal(os.Interrupt)
		}
		w.mu.Unlock()
	}
}

func (m *Manager) spawn(w *Worker) error {
	cmd := exec.Command(m.opts.BotPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("BOT_TOKEN=%s", m.opts.Token),
		fmt.Sprintf("SHARD_ID=%d", w.ID),
		fmt.Sprintf("SHARD_COUNT=%d", m.opts.TotalShards),
		fmt.Sprintf("SHARD_RPC_PORT=%d", m.opts.RPCBasePort+w.ID),
	)
	cmd.Env = append(cmd.Env, m.opts.Env...)

	if err := cmd.Start(); err != nil {
		return errutil.With(err)
	}

	w.mu.Lock()
	w.cmd = cmd
	w.started = time.Now()
	w.mu.Unlock()

	go m.monitor(w, cmd)
	return nil
}

// monitor waits on a worker process and respawns it after the configured
// delay unless the fleet is shutting down.
func (m *Manager) monitor(w *Worker, cmd *exec.Cmd) {
	err := cmd.Wait()
	if m.stopping.Load() {
		return
	}

	m.log.Error("shard worker exited", "shard_id", w.ID, "error", err)
	time.Sleep(m.opts.RespawnDelay)

	if m.stopping.Load() {
		return
	}
	if err := m.spawn(w); err != nil {
		m.log.Error("shard worker respawn failed", "shard_id", w.ID, "error", err)
		return
	}
	m.log.Info("shard worker respawned", "shard_id", w.ID)
}

// ShardIDs returns the assigned shard IDs in roster order.
func (m *Manager) ShardIDs() []int {
	ids := make([]int, 0, len(m.workers))
	for _, w := range m.workers {
		ids = append(ids, w.ID)
	}
	return ids
}

// ShardCount is the fleet-wide shard count.
func (m *Manager) ShardCount() int {
	return m.opts.TotalShards
}

// Uptime is how long the fleet has been running.
func (m *Manager) Uptime() time.Duration {
	if m.started.IsZero() {
		return 0
	}
	return time.Since(m.started)
}

// GuildCounts collects every shard's guild count, in roster order. Any
// unreachable or not-ready shard fails the whole call with ErrFleetStarting.
func (m *Manager) GuildCounts(ctx context.Context) ([]int, error) {
	counts := make([]int, len(m.workers))

	var g errgroup.Group
	for i, w := range m.workers {
		g.Go(func() error {
			var resp GuildCountResponse
			if err := m.get(ctx, w, "/guilds/count", &resp); err != nil {
				return err
			}
			counts[i] = resp.Count
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// ServerCount is the total guild count across the fleet.
func (m *Manager) ServerCount(ctx context.Context) (int, error) {
	counts, err := m.GuildCounts(ctx)
	if err != nil {
		return 0, err
	}
	return utils.Sum(counts), nil
}

// GuildIDs collects every shard's guild IDs, one slice per shard in roster
// order.
func (m *Manager) GuildIDs(ctx context.Context) ([][]string, error) {
	guilds := make([][]string, len(m.workers))

	var g errgroup.Group
	for i, w := range m.workers {
		g.Go(func() error {
			var resp GuildsResponse
			if err := m.get(ctx, w, "/guilds", &resp); err != nil {
				return err
			}
			guilds[i] = resp.Guilds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return guilds, nil
}

// SetPresence pushes a presence update to every shard.
func (m *Manager) SetPresence(ctx context.Context, req PresenceRequest) error {
	var g errgroup.Group
	for _, w := range m.workers {
		g.Go(func() error {
			return m.put(ctx, w, "/presence", req)
		})
	}
	return g.Wait()
}

// ShardStatuses reports every shard's status, keeping a slot for shards
// that could not be reached instead of failing the whole call.
func (m *Manager) ShardStatuses(ctx context.Context) []ShardStatus {
	statuses := make([]ShardStatus, len(m.workers))

	var wg sync.WaitGroup
	for i, w := range m.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			var resp StatusResponse
			if err := m.get(ctx, w, "/status", &resp); err != nil {
				statuses[i] = ShardStatus{ID: w.ID, Err: err}
				return
			}
			statuses[i] = ShardStatus{
				ID:         resp.ID,
				Ready:      resp.Ready,
				Guilds:     resp.Guilds,
				UptimeSecs: resp.UptimeSecs,
			}
		}()
	}
	wg.Wait()
	return statuses
}

func (m *Manager) get(ctx context.Context, w *Worker, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.addr+path, nil)
	if err != nil {
		return errutil.With(err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: shard %d unreachable: %v", ErrFleetStarting, w.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("%w: shard %d not ready", ErrFleetStarting, w.ID)
	}
	if resp.StatusCode != http.StatusOK {
		return errutil.With(fmt.Errorf("shard %d: unexpected status %d", w.ID, resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errutil.With(err)
	}
	return nil
}

func (m *Manager) put(ctx context.Context, w *Worker, path string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return errutil.With(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, w.addr+path, bytes.NewReader(buf))
	if err != nil {
		return errutil.With(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: shard %d unreachable: %v", ErrFleetStarting, w.ID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("%w: shard %d not ready", ErrFleetStarting, w.ID)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return errutil.With(fmt.Errorf("shard %d: unexpected status %d", w.ID, resp.StatusCode))
	}
	return nil
}
