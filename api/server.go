package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/townmap/game/engine"
	"github.com/wricardo/townmap/game/service"
	"github.com/wricardo/townmap/render/svg"
	"github.com/wricardo/townmap/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.MapService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server
func NewServer(mapService service.MapService, hub *websocket.Hub) *Server {
	s := &Server{
		service: mapService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Streams
	api.HandleFunc("/streams", s.handleCreateStream).Methods("POST")
	api.HandleFunc("/streams", s.handleListStreams).Methods("GET")
	api.HandleFunc("/streams/{id}", s.handleGetStream).Methods("GET")
	api.HandleFunc("/streams/{id}", s.handleDeleteStream).Methods("DELETE")
	api.HandleFunc("/streams/{id}/viewport", s.handleSetViewport).Methods("POST")
	api.HandleFunc("/streams/{id}/frame", s.handleCurrentFrame).Methods("GET")
	api.HandleFunc("/streams/{id}/frame.svg", s.handleCurrentFrameSVG).Methods("GET")

	// One-shot maps
	api.HandleFunc("/maps", s.handleGenerateMap).Methods("GET")
	api.HandleFunc("/maps", s.handleGenerateMapPost).Methods("POST")
	api.HandleFunc("/maps.svg", s.handleGenerateMapSVG).Methods("GET")

	// Parameter sets (schema must be before {name} pattern)
	api.HandleFunc("/params", s.handleListParams).Methods("GET")
	api.HandleFunc("/params", s.handleSaveParams).Methods("POST")
	api.HandleFunc("/params/schema", s.handleParamsSchema).Methods("GET")
	api.HandleFunc("/params/{name}", s.handleGetParams).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError picks the status code for a service error
func respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrStreamNotFound), errors.Is(err, service.ErrParamsNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidParams):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNoFrame):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrNoRoute):
		status = http.StatusUnprocessableEntity
	}
	respondError(w, status, err.Error())
}

func respondSVG(w http.ResponseWriter, r *http.Request, snapshot *engine.Snapshot) {
	w.Header().Set("Content-Type", svg.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	if err := svg.Document(snapshot).Render(r.Context(), w); err != nil {
		log.Printf("[MAP] Failed to render frame %d: %v", snapshot.ID, err)
	}
}

// Stream Handlers

func (s *Server) handleCreateStream(w http.ResponseWriter, r *http.Request) {
	var req service.StreamRequest

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	stream, err := s.service.CreateStream(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[STREAM] created id=%s params=%s size=%s seed=%d", stream.ID, stream.ParamsName, stream.SizeClass, stream.Seed)
	respondJSON(w, http.StatusCreated, stream)
}

func (s *Server) handleListStreams(w http.ResponseWriter, r *http.Request) {
	streams, err := s.service.ListStreams(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Parse query parameters
	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of streams to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(streams, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = streams[i].CreatedAt, streams[j].CreatedAt
		} else { // "accessed"
			ti, tj = streams[i].LastAccessedAt, streams[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj) // desc
	})

	total := len(streams)
	limit := total
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < total {
			limit = l
		}
	}
	streams = streams[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(streams),
		"total":   total,
		"streams": streams,
		"sort":    sortBy,
		"order":   order,
	})
}

func (s *Server) handleGetStream(w http.ResponseWriter, r *http.Request) {
	streamID := mux.Vars(r)["id"]

	stream, err := s.service.GetStream(r.Context(), streamID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stream)
}

func (s *Server) handleDeleteStream(w http.ResponseWriter, r *http.Request) {
	streamID := mux.Vars(r)["id"]

	if err := s.service.DeleteStream(r.Context(), streamID); err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.Publish(&websocket.Message{StreamID: streamID, Event: websocket.EventClear})
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Stream %s deleted", streamID),
	})
}

func (s *Server) handleSetViewport(w http.ResponseWriter, r *http.Request) {
	streamID := mux.Vars(r)["id"]

	var viewport service.Viewport
	if err := json.NewDecoder(r.Body).Decode(&viewport); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	stream, err := s.service.SetViewport(r.Context(), streamID, viewport)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stream)
}

func (s *Server) handleCurrentFrame(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.service.CurrentFrame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleCurrentFrameSVG(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.service.CurrentFrame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSVG(w, r, snapshot)
}

// Map Handlers

// mapRequest reads ?params=&seed=&size= (or width_rem / columns)
func mapRequest(r *http.Request) (service.MapRequest, error) {
	query := r.URL.Query()
	req := service.MapRequest{
		ParamsName: strings.TrimSuffix(query.Get("params"), ".json"),
		Viewport:   service.Viewport{SizeClass: query.Get("size")},
	}

	if seedStr := query.Get("seed"); seedStr != "" {
		seed, err := strconv.ParseUint(seedStr, 10, 64)
		if err != nil {
			return req, fmt.Errorf("invalid seed %q", seedStr)
		}
		req.Seed = seed
	}
	if remStr := query.Get("width_rem"); remStr != "" {
		rem, err := strconv.ParseFloat(remStr, 64)
		if err != nil {
			return req, fmt.Errorf("invalid width_rem %q", remStr)
		}
		req.Viewport.WidthRem = rem
	}
	if colStr := query.Get("columns"); colStr != "" {
		cols, err := strconv.Atoi(colStr)
		if err != nil {
			return req, fmt.Errorf("invalid columns %q", colStr)
		}
		req.Viewport.Columns = cols
	}
	return req, nil
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, req service.MapRequest) (*engine.Snapshot, bool) {
	snapshot, err := s.service.GenerateMap(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return nil, false
	}

	log.Printf("[MAP] seed=%d size=%s route=%d attempts=%d regenerations=%d elapsed=%s",
		req.Seed, snapshot.SizeClass, len(snapshot.Route), snapshot.Stats.Attempts,
		snapshot.Stats.Regenerations, snapshot.Stats.Elapsed)
	return snapshot, true
}

func (s *Server) handleGenerateMap(w http.ResponseWriter, r *http.Request) {
	req, err := mapRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if snapshot, ok := s.generate(w, r, req); ok {
		respondJSON(w, http.StatusOK, snapshot)
	}
}

func (s *Server) handleGenerateMapPost(w http.ResponseWriter, r *http.Request) {
	var req service.MapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Params != nil {
		req.Params.ApplyDefaults()
	}

	if snapshot, ok := s.generate(w, r, req); ok {
		respondJSON(w, http.StatusOK, snapshot)
	}
}

func (s *Server) handleGenerateMapSVG(w http.ResponseWriter, r *http.Request) {
	req, err := mapRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if snapshot, ok := s.generate(w, r, req); ok {
		respondSVG(w, r, snapshot)
	}
}

// Parameter Handlers

func (s *Server) handleListParams(w http.ResponseWriter, r *http.Request) {
	params, err := s.service.ListParams(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(params),
		"params": params,
	})
}

func (s *Server) handleGetParams(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	// Remove extension if present
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		name = strings.TrimSuffix(name, ext)
	}

	params, err := s.service.LoadParams(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, params)
}

func (s *Server) handleSaveParams(w http.ResponseWriter, r *http.Request) {
	var req struct {
		engine.Params
		ID string `json:"id,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// The file name defaults to the display name
	id := req.ID
	if id == "" {
		id = req.Name
	}
	if id == "" {
		respondError(w, http.StatusBadRequest, "Params name is required")
		return
	}

	params := req.Params
	params.ApplyDefaults()

	if err := s.service.SaveParams(r.Context(), id, &params); err != nil {
		if errors.Is(err, service.ErrInvalidParams) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save params: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Parameters saved successfully",
		"params_id": id,
	})
}

func (s *Server) handleParamsSchema(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, engine.ParamsSchema())
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	streamID := r.URL.Query().Get("stream")
	if streamID == "" {
		http.Error(w, "stream parameter required", http.StatusBadRequest)
		return
	}

	// Verify stream exists
	stream, err := s.service.GetStream(r.Context(), streamID)
	if err != nil {
		http.Error(w, "Invalid stream", http.StatusNotFound)
		return
	}

	var initial *websocket.Message
	if stream.Current != nil {
		initial = &websocket.Message{
			StreamID: stream.ID,
			Event:    websocket.EventMount,
			FrameID:  stream.Current.ID,
			Frame:    stream.Current,
		}
	}

	// Viewport messages outlive the upgrade request, so they get their own context
	onMessage := func(msg websocket.ClientMessage) {
		if msg.Event != "viewport" {
			return
		}
		if _, err := s.service.SetViewport(context.Background(), stream.ID, msg.Viewport()); err != nil {
			log.Printf("[WS] viewport change for %s failed: %v", stream.ID, err)
		}
	}

	s.hub.ServeWS(w, r, stream.ID, initial, onMessage)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
