package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/game"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/jason-s-yu/arena/internal/room"
	"github.com/sirupsen/logrus"
)

// Events only the transport emits.
const (
	EventError      = "error"
	EventRoomsList  = "rooms-list"
	EventRoomState  = "room-state"
	eventBadRequest = "bad_request"
)

// inbound is one client frame.
type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// eventPayload is the union of every client payload. Each event reads the
// fields it needs.
type eventPayload struct {
	RoomCode    string                 `json:"roomCode"`
	Settings    *models.RoomSettings   `json:"settings"`
	Roll        int                    `json:"roll"`
	Choice      models.Role            `json:"choice"`
	Topic       string                 `json:"topic"`
	Game        string                 `json:"game"`
	Score       int                    `json:"score"`
	QuestionID  string                 `json:"questionId"`
	AnswerIndex int                    `json:"answerIndex"`
	Progress    map[string]interface{} `json:"progress"`
}

type eventHandler func(ctx context.Context, sess *session, p eventPayload) error

func (s *Server) handlers() map[string]eventHandler {
	return map[string]eventHandler{
		"create-room":          s.onCreateRoom,
		"join-room":            s.onJoinRoom,
		"toggle-ready":         s.onToggleReady,
		"leave-room":           s.onLeaveRoom,
		"close-room":           s.onCloseRoom,
		"update-room-settings": s.onUpdateSettings,
		"check-room-ready":     s.onCheckReady,
		"get-rooms":            s.onGetRooms,
		"get-room-state":       s.onGetRoomState,
		"start-game-from-room": s.onStartGame,
		"roll-die":             s.onRollDie,
		"make-choice":          s.onMakeChoice,
		"submit-score":         s.onSubmitScore,
		"submit-answer":        s.onSubmitAnswer,
		"update-game-progress": s.onUpdateProgress,
		"quit-game":            s.onQuitGame,
		"rematch":              s.onRematch,
		"return-to-room":       s.onReturnToRoom,
		"get-game-state":       s.onGetGameState,
		"get-active-games":     s.onGetActiveGames,
		"join-as-viewer":       s.onJoinAsViewer,
	}
}

// dispatch runs one client event. Failures go back to the sender as an error
// event, except stale-client races which are only logged.
func (s *Server) dispatch(ctx context.Context, sess *session, msg inbound) {
	log := s.logger.WithFields(logrus.Fields{
		"conn":  sess.client.ID,
		"user":  sess.user.ID,
		"event": msg.Type,
	})

	handle, ok := s.routes[msg.Type]
	if !ok {
		s.sendError(sess, eventBadRequest, fmt.Sprintf("unknown event %q", msg.Type))
		return
	}
	var p eventPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.sendError(sess, eventBadRequest, "invalid payload")
			return
		}
	}
	if p.RoomCode == "" {
		p.RoomCode, _ = s.rooms.RoomOf(sess.user.ID)
	}
	p.RoomCode = room.NormalizeCode(p.RoomCode)

	err := handle(ctx, sess, p)
	switch {
	case err == nil:
		log.Debug("event handled")
	case models.IsRaceError(err):
		log.WithError(err).Warn("dropped stale event")
	default:
		log.WithError(err).Info("event rejected")
		s.sendError(sess, models.ErrorCode(err), err.Error())
	}
}

func (s *Server) sendError(sess *session, code, message string) {
	s.bc.EmitTo(sess.client.ID, EventError, map[string]string{
		"code":    code,
		"message": message,
	})
}

func (s *Server) onCreateRoom(ctx context.Context, sess *session, p eventPayload) error {
	settings := models.DefaultRoomSettings()
	if p.Settings != nil {
		settings = p.Settings.WithDefaults()
	}
	if err := s.quitPriorMatch(ctx, sess.user.ID, ""); err != nil {
		return err
	}
	_, err := s.rooms.CreateRoom(sess.user, sess.client.ID, settings)
	return err
}

// onJoinRoom also covers reconnects: a player whose match is still running
// gets the current match view right away.
func (s *Server) onJoinRoom(ctx context.Context, sess *session, p eventPayload) error {
	if err := s.quitPriorMatch(ctx, sess.user.ID, p.RoomCode); err != nil {
		return err
	}
	if _, err := s.rooms.JoinRoom(p.RoomCode, sess.user, sess.client.ID); err != nil {
		return err
	}
	if err := s.engine.State(p.RoomCode, sess.client.ID); err != nil && !errors.Is(err, models.ErrMatchNotFound) {
		return err
	}
	return nil
}

func (s *Server) onToggleReady(_ context.Context, sess *session, p eventPayload) error {
	_, err := s.rooms.ToggleReady(p.RoomCode, sess.user.ID)
	return err
}

// quitPriorMatch quits the match running in the room the user is about to
// give up for next. Staying in the same room is a reconnect, not a quit.
func (s *Server) quitPriorMatch(ctx context.Context, userID uuid.UUID, next string) error {
	prior, ok := s.rooms.RoomOf(userID)
	if !ok || prior == next {
		return nil
	}
	err := s.engine.QuitMatch(ctx, prior, userID, models.QuitLeftRoom)
	if err != nil && !errors.Is(err, models.ErrMatchNotFound) && !models.IsRaceError(err) {
		return err
	}
	return nil
}

// onLeaveRoom quits any running match before giving up the room slot.
func (s *Server) onLeaveRoom(ctx context.Context, sess *session, p eventPayload) error {
	err := s.engine.QuitMatch(ctx, p.RoomCode, sess.user.ID, models.QuitLeftRoom)
	if err != nil && !errors.Is(err, models.ErrMatchNotFound) && !models.IsRaceError(err) {
		return err
	}
	return s.rooms.LeaveRoom(p.RoomCode, sess.user.ID)
}

func (s *Server) onCloseRoom(_ context.Context, sess *session, p eventPayload) error {
	return s.rooms.CloseRoom(p.RoomCode, sess.user.ID)
}

func (s *Server) onUpdateSettings(_ context.Context, sess *session, p eventPayload) error {
	if p.Settings == nil {
		return fmt.Errorf("missing settings: %w", models.ErrInvalidSettings)
	}
	_, err := s.rooms.UpdateSettings(p.RoomCode, sess.user.ID, p.Settings.WithDefaults())
	return err
}

func (s *Server) onCheckReady(_ context.Context, sess *session, p eventPayload) error {
	canStart, reason, err := s.rooms.CheckReady(p.RoomCode)
	if err != nil {
		return err
	}
	s.bc.EmitTo(sess.client.ID, room.EventRoomReadyStatus, map[string]interface{}{
		"roomCode": p.RoomCode,
		"canStart": canStart,
		"reason":   reason,
	})
	return nil
}

func (s *Server) onGetRooms(_ context.Context, sess *session, _ eventPayload) error {
	s.bc.EmitTo(sess.client.ID, EventRoomsList, map[string]interface{}{"rooms": s.rooms.ListOpen()})
	return nil
}

func (s *Server) onGetRoomState(_ context.Context, sess *session, p eventPayload) error {
	view, err := s.rooms.Snapshot(p.RoomCode)
	if err != nil {
		return err
	}
	s.bc.EmitTo(sess.client.ID, EventRoomState, view)
	return nil
}

func (s *Server) onStartGame(ctx context.Context, sess *session, p eventPayload) error {
	return s.engine.StartMatch(ctx, p.RoomCode, sess.user.ID)
}

func (s *Server) onRollDie(ctx context.Context, sess *session, p eventPayload) error {
	return s.engine.RollDie(ctx, p.RoomCode, sess.user.ID, p.Roll)
}

func (s *Server) onMakeChoice(ctx context.Context, sess *session, p eventPayload) error {
	return s.engine.MakeChoice(ctx, p.RoomCode, sess.user.ID, p.Choice, p.Topic, p.Game)
}

// onSubmitScore always credits the socket's user, whatever the payload says.
func (s *Server) onSubmitScore(_ context.Context, sess *session, p eventPayload) error {
	return s.engine.SubmitScore(p.RoomCode, sess.user.ID, p.Score)
}

func (s *Server) onSubmitAnswer(_ context.Context, sess *session, p eventPayload) error {
	return s.engine.SubmitAnswer(p.RoomCode, sess.user.ID, p.QuestionID, p.AnswerIndex)
}

func (s *Server) onUpdateProgress(_ context.Context, sess *session, p eventPayload) error {
	return s.engine.UpdateProgress(p.RoomCode, sess.user.ID, p.Progress)
}

func (s *Server) onQuitGame(ctx context.Context, sess *session, p eventPayload) error {
	return s.engine.QuitMatch(ctx, p.RoomCode, sess.user.ID, models.QuitVoluntary)
}

func (s *Server) onRematch(ctx context.Context, sess *session, p eventPayload) error {
	return s.engine.Rematch(ctx, p.RoomCode, sess.user.ID)
}

func (s *Server) onReturnToRoom(_ context.Context, sess *session, p eventPayload) error {
	return s.engine.ReturnToRoom(p.RoomCode, sess.user.ID)
}

func (s *Server) onGetGameState(_ context.Context, sess *session, p eventPayload) error {
	return s.engine.State(p.RoomCode, sess.client.ID)
}

func (s *Server) onGetActiveGames(_ context.Context, sess *session, _ eventPayload) error {
	s.bc.EmitTo(sess.client.ID, game.EventActiveGamesList, map[string]interface{}{"games": s.engine.ActiveMatches()})
	return nil
}

func (s *Server) onJoinAsViewer(_ context.Context, sess *session, p eventPayload) error {
	return s.engine.JoinAsViewer(p.RoomCode, sess.client.ID)
}
