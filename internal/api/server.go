// Package api provides the HTTP API for watching and tending the kittens.
// GET endpoints are public (read-only observation).
// Mutating endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/kitten-world/internal/engine"
	"github.com/talgya/kitten-world/internal/persistence"
	"github.com/talgya/kitten-world/internal/toys"
	"github.com/talgya/kitten-world/internal/world"
)

// commandTimeout bounds how long a request waits for the next tick to apply
// its command.
const commandTimeout = 5 * time.Second

// Server serves the game over HTTP.
type Server struct {
	Sim         *engine.Simulation
	Eng         *engine.Engine
	DB          *persistence.DB
	Port        int
	AdminKey    string // Bearer token for mutating endpoints. Empty = mutations disabled.
	SnapshotDir string // Where POST /snapshot writes compressed snapshots. Empty = DB only.

	schemas     schemas
	streamConns int32
	http        *http.Server
}

// Handler builds the route table.
func (s *Server) Handler() (http.Handler, error) {
	if s.schemas == nil {
		sc, err := compileSchemas()
		if err != nil {
			return nil, err
		}
		s.schemas = sc
	}
	adminLimiter := NewRateLimiter(120, time.Minute)
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return s.adminOnly(RateLimitMiddleware(adminLimiter, h))
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/kittens", s.handleKittens)
	mux.HandleFunc("GET /api/v1/kitten/{id}", s.handleKitten)
	mux.HandleFunc("GET /api/v1/toys", s.handleToys)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/catalog", s.handleCatalog)
	mux.HandleFunc("GET /api/v1/level", s.handleLevel)
	mux.HandleFunc("GET /api/v1/speed", s.handleGetSpeed)
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	// Admin endpoints (require bearer token).
	mux.HandleFunc("POST /api/v1/toys", admin(s.handleCreateToy))
	mux.HandleFunc("POST /api/v1/toys/{id}/grab", admin(s.handleGrabToy))
	mux.HandleFunc("POST /api/v1/toys/{id}/move", admin(s.handleMoveToy))
	mux.HandleFunc("POST /api/v1/toys/{id}/drop", admin(s.handleDropToy))
	mux.HandleFunc("DELETE /api/v1/toys/{id}", admin(s.handleDeleteToy))
	mux.HandleFunc("POST /api/v1/kittens", admin(s.handleAddKitten))
	mux.HandleFunc("POST /api/v1/speed", admin(s.handleSetSpeed))
	mux.HandleFunc("POST /api/v1/snapshot", admin(s.handleSnapshot))

	return corsMiddleware(mux), nil
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}
	addr := fmt.Sprintf(":%d", s.Port)
	s.http = &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no KITTEN_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":   "kitten-world",
		"game":   s.Sim.Status(),
		"speed":  s.speed(),
		"paused": s.speed() == 0,
	}
	writeJSON(w, status)
}

func (s *Server) handleKittens(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("x") || q.Has("y") {
		x, errX := strconv.ParseFloat(q.Get("x"), 64)
		y, errY := strconv.ParseFloat(q.Get("y"), 64)
		if errX != nil || errY != nil {
			http.Error(w, "x and y must be numbers", http.StatusBadRequest)
			return
		}
		writeJSON(w, s.Sim.KittensAt(world.V(x, y)))
		return
	}
	writeJSON(w, s.Sim.KittenList())
}

func (s *Server) handleKitten(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	k, found := s.Sim.Kitten(id)
	if !found {
		http.Error(w, "kitten not found", http.StatusNotFound)
		return
	}
	writeJSON(w, k)
}

func (s *Server) handleToys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.ToyList())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			http.Error(w, "limit must be 1-1000", http.StatusBadRequest)
			return
		}
		limit = n
	}

	if r.URL.Query().Get("source") == "db" {
		if s.DB == nil {
			http.Error(w, "database not available", http.StatusServiceUnavailable)
			return
		}
		events, err := s.DB.RecentEvents(limit)
		if err != nil {
			slog.Error("recent events query failed", "error", err)
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, events)
		return
	}
	writeJSON(w, s.Sim.RecentEvents(limit))
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, toys.Catalog)
}

func (s *Server) handleLevel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot().Level)
}

func (s *Server) speed() float64 {
	if s.Eng == nil {
		return 0
	}
	return s.Eng.Speed()
}

func (s *Server) handleGetSpeed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]float64{"speed": s.speed()})
}

func (s *Server) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := s.schemas.decode(schemaSpeed, r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if s.Eng == nil {
		http.Error(w, "engine not available", http.StatusServiceUnavailable)
		return
	}
	s.Eng.SetSpeed(req.Speed)
	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleCreateToy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind  string  `json:"kind"`
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
		Place bool    `json:"place"`
	}
	if err := s.schemas.decode(schemaToyCreate, r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	kind, ok := toys.ParseKind(req.Kind)
	if !ok {
		http.Error(w, "unknown toy kind", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	pos := world.V(req.X, req.Y)
	var (
		t   toys.Toy
		err error
	)
	if req.Place {
		t, err = s.Sim.BuyToy(ctx, kind, pos)
	} else {
		t, err = s.Sim.SpawnToy(ctx, kind, pos)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, t)
}

func (s *Server) handleGrabToy(w http.ResponseWriter, r *http.Request) {
	s.toyCommand(w, r, s.Sim.GrabToy)
}

func (s *Server) handleDropToy(w http.ResponseWriter, r *http.Request) {
	s.toyCommand(w, r, s.Sim.DropToy)
}

func (s *Server) handleMoveToy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := s.schemas.decode(schemaPoint, r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.toyCommand(w, r, func(ctx context.Context, id uuid.UUID) (toys.Toy, error) {
		return s.Sim.MoveToy(ctx, id, world.V(req.X, req.Y))
	})
}

// handleDeleteToy cancels a drag, or removes a placed toy without refund.
func (s *Server) handleDeleteToy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	destroyed, err := s.Sim.CancelToy(ctx, id)
	if errors.Is(err, toys.ErrNotHeld) {
		err = s.Sim.RemoveToy(ctx, id)
		destroyed = err == nil
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"id": id, "destroyed": destroyed})
}

func (s *Server) handleAddKitten(w http.ResponseWriter, r *http.Request) {
	pos := world.SpawnPoint(s.Sim.Level)
	if r.ContentLength != 0 {
		var req struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		}
		if err := s.schemas.decode(schemaPoint, r.Body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		pos = world.V(req.X, req.Y)
	}
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	k, err := s.Sim.AddKitten(ctx, pos)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, k)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil && s.SnapshotDir == "" {
		http.Error(w, "no snapshot target configured", http.StatusServiceUnavailable)
		return
	}

	resp := map[string]any{"tick": s.Sim.CurrentTick()}
	if s.DB != nil {
		if err := s.DB.SaveState(s.Sim); err != nil {
			slog.Error("snapshot save failed", "error", err)
			http.Error(w, "snapshot failed", http.StatusInternalServerError)
			return
		}
		resp["db"] = "saved"
	}
	if s.SnapshotDir != "" {
		snap := s.Sim.Snapshot()
		path := filepath.Join(s.SnapshotDir, fmt.Sprintf("kittens-%010d.json.zst", snap.Tick))
		if err := persistence.WriteSnapshot(path, snap); err != nil {
			slog.Error("snapshot write failed", "error", err)
			http.Error(w, "snapshot failed", http.StatusInternalServerError)
			return
		}
		resp["file"] = path
	}
	writeJSON(w, resp)
}

func (s *Server) toyCommand(w http.ResponseWriter, r *http.Request, run func(context.Context, uuid.UUID) (toys.Toy, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	t, err := run(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, t)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps domain refusals to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, toys.ErrUnknownToy):
		status = http.StatusNotFound
	case errors.Is(err, toys.ErrUnknownKind):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, toys.ErrBlocked), errors.Is(err, toys.ErrNotHeld), errors.Is(err, toys.ErrNotPlaced):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
