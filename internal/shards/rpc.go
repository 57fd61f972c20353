package shards

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/graxinc/errutil"
)

// Wire types for the manager <-> worker loopback RPC. Every fleet-wide
// operation is one of these enumerated endpoints; workers never evaluate
// arbitrary requests.

// StatusResponse describes one worker's health.
type StatusResponse struct {
	ID         int   `json:"id"`
	Ready      bool  `json:"ready"`
	UptimeSecs int64 `json:"uptimeSecs"`
	Guilds     int   `json:"guilds"`
}

// GuildsResponse lists the guild IDs a worker's shard serves.
type GuildsResponse struct {
	Guilds []string `json:"guilds"`
}

// GuildCountResponse carries one worker's guild count.
type GuildCountResponse struct {
	Count int `json:"count"`
}

// PresenceRequest asks a worker to update its gateway presence.
type PresenceRequest struct {
	Type string `json:"type"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// WorkerState is what a worker exposes over its RPC server.
type WorkerState interface {
	ShardID() int
	Ready() bool
	Uptime() time.Duration
	GuildIDs() []string
	GuildCount() int
	SetPresence(activityType, name, url string) error
}

// RPCServer serves one worker's slice of the fleet RPC on loopback.
type RPCServer struct {
	state WorkerState
	log   *slog.Logger
	srv   *http.Server
}

func NewRPCServer(state WorkerState, log *slog.Logger, port int) *RPCServer {
	s := &RPCServer{state: state, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /guilds", s.handleGuilds)
	mux.HandleFunc("GET /guilds/count", s.handleGuildCount)
	mux.HandleFunc("PUT /presence", s.handlePresence)

	s.srv = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: mux,
	}
	return s
}

// Start binds the loopback listener and serves in the background. The bind
// happens synchronously so a port clash surfaces as a startup error.
func (s *RPCServer) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return errutil.With(err)
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("rpc server failed", "error", err)
		}
	}()
	return nil
}

func (s *RPCServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *RPCServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		ID:         s.state.ShardID(),
		Ready:      s.state.Ready(),
		UptimeSecs: int64(s.state.Uptime().Seconds()),
		Guilds:     s.state.GuildCount(),
	})
}

func (s *RPCServer) handleGuilds(w http.ResponseWriter, r *http.Request) {
	if !s.state.Ready() {
		http.Error(w, "shard not ready", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, GuildsResponse{Guilds: s.state.GuildIDs()})
}

func (s *RPCServer) handleGuildCount(w http.ResponseWriter, r *http.Request) {
	if !s.state.Ready() {
		http.Error(w, "shard not ready", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, GuildCountResponse{Count: s.state.GuildCount()})
}

func (s *RPCServer) handlePresence(w http.ResponseWriter, r *http.Request) {
	if !s.state.Ready() {
		http.Error(w, "shard not ready", http.StatusServiceUnavailable)
		return
	}

	var req PresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := s.state.SetPresence(req.Type, req.Name, req.URL); err != nil {
		s.log.Error("presence update failed", "error", err)
		http.Error(w, "presence update failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
