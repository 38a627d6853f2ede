// Package handlers exposes the arena over HTTP: the /arena/ws socket and a
// few read-only JSON endpoints.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/auth"
	"github.com/jason-s-yu/arena/internal/broadcast"
	"github.com/jason-s-yu/arena/internal/game"
	"github.com/jason-s-yu/arena/internal/middleware"
	"github.com/jason-s-yu/arena/internal/room"
	"github.com/sirupsen/logrus"
)

// AccountProvisioner makes sure a ledger account exists for a socket user.
type AccountProvisioner interface {
	EnsureAccount(ctx context.Context, userID uuid.UUID, username string) error
}

// HealthChecker reports the state of a backing service.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server routes socket events into the room registry and match engine.
type Server struct {
	rooms    *room.Registry
	engine   *game.Engine
	hub      *broadcast.Hub
	bc       broadcast.Broadcaster
	sessions *auth.Sessions
	accounts AccountProvisioner
	health   map[string]HealthChecker
	logger   logrus.FieldLogger
	routes   map[string]eventHandler
}

// Options are the collaborators of a Server. Accounts and Health are
// optional.
type Options struct {
	Rooms    *room.Registry
	Engine   *game.Engine
	Hub      *broadcast.Hub
	Sessions *auth.Sessions
	Accounts AccountProvisioner
	Health   map[string]HealthChecker
	Logger   logrus.FieldLogger
}

func NewServer(opts Options) (*Server, error) {
	switch {
	case opts.Rooms == nil:
		return nil, errors.New("room registry cannot be nil")
	case opts.Engine == nil:
		return nil, errors.New("match engine cannot be nil")
	case opts.Hub == nil:
		return nil, errors.New("hub cannot be nil")
	case opts.Sessions == nil:
		return nil, errors.New("sessions cannot be nil")
	case opts.Logger == nil:
		return nil, errors.New("logger cannot be nil")
	}
	s := &Server{
		rooms:    opts.Rooms,
		engine:   opts.Engine,
		hub:      opts.Hub,
		bc:       opts.Hub,
		sessions: opts.Sessions,
		accounts: opts.Accounts,
		health:   opts.Health,
		logger:   opts.Logger,
	}
	s.routes = s.handlers()
	return s, nil
}

// Routes builds the HTTP handler for the whole service.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /rooms", s.handleListRooms)
	mux.HandleFunc("GET /rooms/{code}", s.handleGetRoom)
	mux.HandleFunc("GET /matches", s.handleListMatches)
	mux.HandleFunc("GET /matches/{code}", s.handleGetMatch)
	mux.Handle("GET /arena/ws", s.ArenaWSHandler())
	return middleware.LogMiddleware(s.logger)(mux)
}
