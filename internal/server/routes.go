package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/scythe504/sketchoff-backend/internal"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(s.corsMiddleware)

	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/rooms-available", s.GetRoomToJoin).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/results", s.GetRecentResults).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/ws", s.gateway)

	return r
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false") // not allowed with a wildcard origin

		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rooms":  s.rooms.RoomCount(),
	})
}

func (s *Server) GetRoomToJoin(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	var resp internal.Response
	if code, ok := s.rooms.JoinableRoom(); ok {
		resp = internal.Response{
			StatusCode:    http.StatusOK,
			RespStartTime: startTime,
			Data:          code,
		}
	} else {
		resp = internal.Response{
			StatusCode:    http.StatusNotFound,
			RespStartTime: startTime,
			Data:          "No joinable rooms available",
		}
	}

	s.writeEnvelope(w, resp)
}

// GetRecentResults lists archived games, newest first. ?limit=N bounds the
// list; the archive clamps it.
func (s *Server) GetRecentResults(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()

	if s.results == nil {
		s.writeEnvelope(w, internal.Response{
			StatusCode:    http.StatusNotFound,
			RespStartTime: startTime,
			Data:          []internal.GameResult{},
		})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeEnvelope(w, internal.Response{
				StatusCode:    http.StatusBadRequest,
				RespStartTime: startTime,
				Data:          "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	results, err := s.results.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to load results", zap.Error(err))
		s.writeEnvelope(w, internal.Response{
			StatusCode:    http.StatusInternalServerError,
			RespStartTime: startTime,
			Data:          "Internal server error",
		})
		return
	}

	s.writeEnvelope(w, internal.Response{
		StatusCode:    http.StatusOK,
		RespStartTime: startTime,
		Data:          results,
	})
}

func (s *Server) writeEnvelope(w http.ResponseWriter, resp internal.Response) {
	resp.RespEndTime = time.Now().UnixMilli()
	resp.NetRespTime = resp.RespEndTime - resp.RespStartTime
	s.writeJSON(w, resp.StatusCode, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("error encoding response", zap.Error(err))
	}
}
