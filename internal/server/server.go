package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/scythe504/sketchoff-backend/internal"
)

// Rooms is the room lookup the HTTP routes need.
type Rooms interface {
	JoinableRoom() (string, bool)
	RoomCount() int
}

// Results reads archived games. It is optional.
type Results interface {
	Recent(ctx context.Context, limit int) ([]internal.GameResult, error)
}

type Config struct {
	Addr    string
	Rooms   Rooms
	Results Results
	// Gateway serves the websocket endpoint.
	Gateway http.Handler
	Logger  *zap.Logger
}

type Server struct {
	rooms   Rooms
	results Results
	gateway http.Handler
	logger  *zap.Logger
}

func NewServer(cfg *Config) (*http.Server, error) {
	if cfg == nil {
		return nil, errors.New("server config is required")
	}
	if cfg.Rooms == nil {
		return nil, errors.New("rooms are required")
	}
	if cfg.Gateway == nil {
		return nil, errors.New("gateway is required")
	}

	s := &Server{
		rooms:   cfg.Rooms,
		results: cfg.Results,
		gateway: cfg.Gateway,
		logger:  cfg.Logger,
	}
	if s.logger == nil {
		s.logger = zap.L()
	}
	s.logger = s.logger.Named("http")

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, nil
}
