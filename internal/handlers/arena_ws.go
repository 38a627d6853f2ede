package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/arena/internal/broadcast"
	"github.com/jason-s-yu/arena/internal/middleware"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	subprotocol  = "arena"
	outboxSize   = 64
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// session is the identity behind one socket.
type session struct {
	client *broadcast.Client
	user   models.User
}

// ArenaWSHandler upgrades authenticated clients onto the arena subprotocol.
func (s *Server) ArenaWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, authErr := s.sessions.AuthenticateJWT(requestToken(r))

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{subprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.logger.WithError(err).Warn("websocket accept error")
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != subprotocol {
			c.Close(BadSubprotocolError, "client must speak the arena subprotocol")
			return
		}
		if authErr != nil {
			s.logger.WithError(authErr).WithField("remote", r.RemoteAddr).Warn("socket authentication failed")
			c.Close(InvalidAuthTokenError, "authentication failed")
			return
		}
		if s.accounts != nil {
			if err := s.accounts.EnsureAccount(r.Context(), user.ID, user.Username); err != nil {
				s.logger.WithError(err).WithField("user", user.ID).Error("failed to provision ledger account")
				c.Close(websocket.StatusInternalError, "account unavailable")
				return
			}
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		client := broadcast.NewClient(user.ID, outboxSize, cancel, s.logger)
		s.hub.Register(client)
		sess := &session{client: client, user: user}
		middleware.LogWebSocketConnect(s.logger, client.ID, user.ID, r.RemoteAddr)

		go s.writePump(ctx, c, client)
		readErr := s.readPump(ctx, c, sess)

		s.rooms.Disconnect(client.ID)
		s.hub.Unregister(client.ID)
		middleware.LogWebSocketDisconnect(s.logger, client.ID, user.ID, readErr)
	}
}

// readPump decodes frames and dispatches them in order until the socket
// closes.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn, sess *session) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			s.logger.WithField("conn", sess.client.ID).Warn("ignoring non-text frame")
			continue
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			s.sendError(sess, "bad_request", "invalid JSON message")
			continue
		}
		s.dispatch(ctx, sess, msg)
	}
}

// writePump drains the client's outbox onto the socket and keeps it alive
// with pings.
func (s *Server) writePump(ctx context.Context, c *websocket.Conn, client *broadcast.Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	log := s.logger.WithFields(logrus.Fields{"conn": client.ID, "user": client.UserID})

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-client.OutChan:
			data, err := json.Marshal(ev)
			if err != nil {
				log.WithError(err).WithField("event", ev.Type).Warn("failed to marshal outgoing event")
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.WithError(err).Debug("write failed, closing socket")
				client.Cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				log.WithError(err).Debug("ping failed, closing socket")
				client.Cancel()
				return
			}
		}
	}
}
