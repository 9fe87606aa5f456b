package editor

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/PabloGalante/tonal/internal/app/gateway"
	"github.com/PabloGalante/tonal/internal/domain"
	"github.com/PabloGalante/tonal/internal/observability"
)

// ErrSessionRequired is returned by undo, redo and reset without a session id.
var ErrSessionRequired = &domain.InvalidInputError{Field: "session_id", Reason: "Session ID required"}

type Service struct {
	sessions domain.SessionStore
	gateway  *gateway.Gateway
	newID    func() string
}

func NewService(sessions domain.SessionStore, gw *gateway.Gateway) *Service {
	return &Service{
		sessions: sessions,
		gateway:  gw,
		newID:    uuid.NewString,
	}
}

type TransformInput struct {
	SessionID domain.SessionID // minted when empty
	Text      string
	Tone      domain.Tone
}

type TransformOutput struct {
	SessionID domain.SessionID
	View      domain.View
}

func (s *Service) Transform(ctx context.Context, in TransformInput) (*TransformOutput, error) {
	// Validate before minting an id or creating a session for a bad request.
	if err := gateway.Validate(in.Text, in.Tone); err != nil {
		return nil, err
	}

	id := in.SessionID
	if blank(id) {
		id = domain.SessionID(s.newID())
		observability.LoggerFromContext(ctx).Info("minted session id", "session_id", id)
	}

	sess := s.sessions.Resolve(id)
	observability.LoggerFromContext(ctx).Debug("session resolved",
		"session_id", id,
		"created_at", sess.CreatedAt,
	)

	view, err := s.gateway.Apply(ctx, sess, in.Text, in.Tone)
	if err != nil {
		return nil, err
	}

	return &TransformOutput{
		SessionID: id,
		View:      view,
	}, nil
}

func (s *Service) Undo(ctx context.Context, id domain.SessionID) (domain.View, error) {
	return s.step(ctx, id, domain.DirectionUndo)
}

func (s *Service) Redo(ctx context.Context, id domain.SessionID) (domain.View, error) {
	return s.step(ctx, id, domain.DirectionRedo)
}

func (s *Service) step(ctx context.Context, id domain.SessionID, dir domain.Direction) (domain.View, error) {
	if blank(id) {
		return domain.View{}, ErrSessionRequired
	}

	sess := s.sessions.Resolve(id)
	log := observability.LoggerFromContext(ctx).With(
		"session_id", id,
		"direction", dir,
		"created_at", sess.CreatedAt,
	)

	var view domain.View
	err := sess.Do(func(h *domain.History) error {
		var err error
		if dir == domain.DirectionUndo {
			view, err = h.Undo()
		} else {
			view, err = h.Redo()
		}
		return err
	})
	if err != nil {
		log.Info("history exhausted", "error", err)
		return domain.View{}, err
	}

	log.Info("history moved", "position", view.Position, "length", view.Length)
	return view, nil
}

func (s *Service) Reset(ctx context.Context, id domain.SessionID) (domain.View, error) {
	if blank(id) {
		return domain.View{}, ErrSessionRequired
	}

	view := s.sessions.Reset(id)
	observability.LoggerFromContext(ctx).Info("history reset", "session_id", id)
	return view, nil
}

// Sessions reports how many sessions the store currently holds.
func (s *Service) Sessions() int {
	return s.sessions.Len()
}

// blank reports a missing session id. Ids are opaque otherwise and are used
// exactly as the client sent them.
func blank(id domain.SessionID) bool {
	return strings.TrimSpace(string(id)) == ""
}
