// Package server exposes the planning engine over HTTP: a JSON planning
// endpoint, stored plan retrieval, KML export and a websocket stream of
// completed plans.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/codrone/flightplanner/internal/export"
	"github.com/codrone/flightplanner/internal/planner"
	"github.com/codrone/flightplanner/internal/store"
	"github.com/codrone/flightplanner/pkg/plan"
)

const (
	sendChSize = 64
	writeWait  = 10 * time.Second
)

// Server wires the engine, the plan store and the websocket hub behind an
// http.Handler.
type Server struct {
	Engine *planner.Engine
	Store  *store.Manager
	Logger zerolog.Logger

	upgrader ws.Upgrader

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

// subscriber is one websocket client with a buffered send channel drained by
// a single write goroutine.
type subscriber struct {
	conn   *ws.Conn
	sendCh chan []byte
}

// New creates a server around an engine and a plan store. st may be nil, in
// which case plans are not persisted and the storage endpoints answer 503.
func New(engine *planner.Engine, st *store.Manager, log zerolog.Logger) *Server {
	return &Server{
		Engine:      engine,
		Store:       st,
		Logger:      log,
		upgrader:    ws.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthcheck", s.handleHealthcheck)
	mux.HandleFunc("POST /api/v1/plan", s.handlePlan)
	mux.HandleFunc("GET /api/v1/plans", s.handleList)
	mux.HandleFunc("GET /api/v1/plans/{id}", s.handleGet)
	mux.HandleFunc("GET /api/v1/plans/{id}/kml", s.handleKML)
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)
	return mux
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req plan.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p, err := s.Engine.Plan(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if isInputError(err) {
			status = http.StatusUnprocessableEntity
		} else if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}

	if s.Store != nil {
		if _, err := s.Store.Save(p); err != nil {
			s.Logger.Error().Err(err).Msg("Failed to persist plan")
		}
	}
	s.broadcast(p)

	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "plan storage is not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	recs, err := s.Store.List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPlan(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleKML(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPlan(w, r)
	if !ok {
		return
	}

	platform := export.Platform(r.URL.Query().Get("platform"))
	name := r.URL.Query().Get("name")

	res, err := export.KML(p, platform, name)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
	_, _ = w.Write(res.KML)
}

func (s *Server) loadPlan(w http.ResponseWriter, r *http.Request) (plan.MissionPlan, bool) {
	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "plan storage is not configured")
		return plan.MissionPlan{}, false
	}

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan id")
		return plan.MissionPlan{}, false
	}

	p, err := s.Store.Get(uint(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return plan.MissionPlan{}, false
	}
	return p, true
}

// handleStream upgrades to websocket and streams every completed plan to the
// client until it disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	sub := &subscriber{conn: conn, sendCh: make(chan []byte, sendChSize)}
	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	s.mu.Unlock()
	s.Logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Stream subscriber connected")

	go s.writeLoop(sub)

	// Read loop only to detect disconnect; clients do not send payloads.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.drop(sub)
}

// writeLoop drains the subscriber channel and writes to the websocket.
func (s *Server) writeLoop(sub *subscriber) {
	for data := range sub.sendCh {
		if err := sub.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			s.drop(sub)
			return
		}
		if err := sub.conn.WriteMessage(ws.TextMessage, data); err != nil {
			s.Logger.Warn().Err(err).Msg("WebSocket write error")
			s.drop(sub)
			return
		}
	}
}

// broadcast fans a completed plan out to all subscribers. Slow clients drop
// messages rather than stalling the planning response.
func (s *Server) broadcast(p plan.MissionPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subscribers) == 0 {
		return
	}

	data, err := json.Marshal(p)
	if err != nil {
		s.Logger.Error().Err(err).Msg("Failed to encode plan for stream")
		return
	}

	for sub := range s.subscribers {
		select {
		case sub.sendCh <- data:
		default:
			s.Logger.Debug().Msg("Subscriber channel full, dropping plan")
		}
	}
}

func (s *Server) drop(sub *subscriber) {
	s.mu.Lock()
	if _, ok := s.subscribers[sub]; ok {
		delete(s.subscribers, sub)
		close(sub.sendCh)
	}
	s.mu.Unlock()
	_ = sub.conn.Close()
}

func isInputError(err error) bool {
	for _, sentinel := range []error{
		plan.ErrDegeneratePolygon,
		plan.ErrSelfIntersecting,
		plan.ErrPolygonTooSmall,
		plan.ErrInvalidAltitude,
		plan.ErrInvalidOverlap,
		plan.ErrUnreachableCoverage,
		plan.ErrInvalidTimeWindow,
		plan.ErrUnknownMissionType,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
