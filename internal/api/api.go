// Package api is the fleet manager's control surface: a small authenticated
// HTTP API for inspecting shards and guilds and pushing presence updates.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sort"
	"time"

	"github.com/rs/xid"

	"github.com/glotchimo/armada/internal/shards"
	"github.com/glotchimo/armada/internal/utils"
)

// Fleet is the slice of the shard manager the API reads from.
type Fleet interface {
	GuildIDs(ctx context.Context) ([][]string, error)
	SetPresence(ctx context.Context, req shards.PresenceRequest) error
	ShardStatuses(ctx context.Context) []shards.ShardStatus
	ShardCount() int
	Uptime() time.Duration
}

// Server hosts the control API.
type Server struct {
	name   string
	author string
	secret string
	fleet  Fleet
	log    *slog.Logger
	srv    *http.Server
}

func NewServer(name, author, secret string, fleet Fleet, log *slog.Logger, port int) *Server {
	s := &Server{
		name:   name,
		author: author,
		secret: secret,
		fleet:  fleet,
		log:    log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.wrap(s.handleRoot, false))
	mux.HandleFunc("GET /guilds", s.wrap(s.handleGuilds, true))
	mux.HandleFunc("GET /shards", s.wrap(s.handleShards, true))
	mux.HandleFunc("PUT /shards/presence", s.wrap(s.handlePresence, true))

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.observe(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the server is shut down or fails.
func (s *Server) Start() error {
	s.log.Info("control api listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// wrap applies auth and maps handler errors to the API's uniform error
// body. Fleet-starting errors answer 503 so callers can retry; everything
// else is a 500 with the message preserved.
func (s *Server) wrap(h handlerFunc, authed bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if authed && r.Header.Get("Authorization") != "Bearer "+s.secret {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		err := h(w, r)
		if err == nil {
			return
		}

		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		if errors.Is(err, shards.ErrFleetStarting) {
			writeError(w, http.StatusServiceUnavailable, "shards are still starting")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// observe tags each request with an ID, logs it, and converts handler
// panics into 500s.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := xid.New().String()
		w.Header().Set("X-Request-ID", requestID)

		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("request panicked",
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request served",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

type rootResponse struct {
	Name   string `json:"name"`
	Author string `json:"author"`
	Commit string `json:"commit"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, rootResponse{
		Name:   s.name,
		Author: s.author,
		Commit: s.Commit(),
	})
}

// Commit resolves the build's VCS revision, "n/a" when unknown.
func (s *Server) Commit() string {
	if c := utils.GetCommit(); c != "" {
		return c
	}
	return "n/a"
}

type guildsResponse struct {
	Guilds []string `json:"guilds"`
}

// handleGuilds returns the union of every shard's guilds. Duplicates can
// appear briefly while a guild moves between shards, so the union dedupes.
func (s *Server) handleGuilds(w http.ResponseWriter, r *http.Request) error {
	perShard, err := s.fleet.GuildIDs(r.Context())
	if err != nil {
		return err
	}

	seen := make(map[string]struct{})
	for _, guilds := range perShard {
		for _, id := range guilds {
			seen[id] = struct{}{}
		}
	}

	union := make([]string, 0, len(seen))
	for id := range seen {
		union = append(union, id)
	}
	sort.Strings(union)

	return writeJSON(w, http.StatusOK, guildsResponse{Guilds: union})
}

type shardEntry struct {
	ID         int    `json:"id"`
	Ready      bool   `json:"ready"`
	Guilds     int    `json:"guilds"`
	UptimeSecs *int64 `json:"uptimeSecs,omitempty"`
	Error      bool   `json:"error,omitempty"`
}

type shardsResponse struct {
	Shards []shardEntry `json:"shards"`
	Stats  shardsStats  `json:"stats"`
}

type shardsStats struct {
	ShardCount int   `json:"shardCount"`
	UptimeSecs int64 `json:"uptimeSecs"`
}

// handleShards reports per-shard status. A shard that cannot be queried
// keeps its slot with error set and no uptime, instead of failing the
// whole response.
func (s *Server) handleShards(w http.ResponseWriter, r *http.Request) error {
	statuses := s.fleet.ShardStatuses(r.Context())

	entries := make([]shardEntry, 0, len(statuses))
	for _, st := range statuses {
		if st.Err != nil {
			s.log.Error("shard status unavailable", "shard_id", st.ID, "error", st.Err)
			entries = append(entries, shardEntry{ID: st.ID, Error: true})
			continue
		}
		uptime := st.UptimeSecs
		entries = append(entries, shardEntry{
			ID:         st.ID,
			Ready:      st.Ready,
			Guilds:     st.Guilds,
			UptimeSecs: &uptime,
		})
	}

	return writeJSON(w, http.StatusOK, shardsResponse{
		Shards: entries,
		Stats: shardsStats{
			ShardCount: s.fleet.ShardCount(),
			UptimeSecs: int64(s.fleet.Uptime().Seconds()),
		},
	})
}

type presenceRequest struct {
	Type string `json:"type"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) error {
	var req presenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return nil
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return nil
	}
	if _, err := shards.ParseActivityType(req.Type); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil
	}

	err := s.fleet.SetPresence(r.Context(), shards.PresenceRequest{
		Type: req.Type,
		Name: req.Name,
		URL:  req.URL,
	})
	if err != nil {
		return err
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

type errorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: true, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
