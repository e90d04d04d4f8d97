package models

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/emberhall/fieldvault/convert"
	"github.com/emberhall/fieldvault/entity"
	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/ident"
	"github.com/emberhall/fieldvault/schema"
)

// SessionCollection is the authoritative collection of the session type.
const SessionCollection = "session"

// Logical field names of the session type.
const (
	SessionFieldToken      = "token"
	SessionFieldUserID     = "userId"
	SessionFieldCreateDate = "createDate"
	SessionFieldExpireDate = "expireDate"
	SessionFieldLastUsed   = "lastUsed"
)

// DefaultSessionLifetime is how long a fresh session stays valid when the
// caller passes no lifetime.
const DefaultSessionLifetime = 24 * time.Hour

// SessionSchema declares the session type's field layout.
func SessionSchema() (*schema.Schema, fverrors.Error) {
	timeField := schema.Field{
		SharedConv: convert.Time(),
		StoreConv:  convert.TimeDoc(),
	}

	return schema.New(SessionCollection, []schema.Definition{
		{Name: SessionFieldToken},
		{Name: SessionFieldUserID, Field: schema.Field{StoreName: "user_id"}},
		{Name: SessionFieldCreateDate, Field: timeField},
		{Name: SessionFieldExpireDate, Field: timeField},
		{Name: SessionFieldLastUsed, Field: timeField},
	})
}

// Sessions is the typed facade over the session entity manager.
type Sessions struct {
	manager *entity.Manager
}

// NewSessions builds the session manager from the deployment-wide base
// config.
func NewSessions(base entity.ManagerConfig) (*Sessions, fverrors.Error) {
	sessionSchema, err := SessionSchema()
	if err != nil {
		return nil, err.Wrap("new sessions")
	}

	base.Schema = sessionSchema
	base.Uncached = nil

	manager, err := entity.NewManager(base)
	if err != nil {
		return nil, err.Wrap("new sessions")
	}

	return &Sessions{manager: manager}, nil
}

// Manager exposes the underlying entity manager.
func (s *Sessions) Manager() *entity.Manager {
	return s.manager
}

// ByID returns the typed handle of an identity.
func (s *Sessions) ByID(id ident.ID) *Session {
	return &Session{s.manager.Handle(id)}
}

// Create opens a session for a user with a freshly generated token. A
// non-positive lifetime selects DefaultSessionLifetime.
//
// Example:
//
//	session, err := sessions.Create(ctx, user.ID(), 0)
func (s *Sessions) Create(
	ctx context.Context,
	userID ident.ID,
	lifetime time.Duration,
) (*Session, fverrors.Error) {
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}

	now := time.Now().UTC().Truncate(time.Millisecond)

	handle, err := s.manager.Create(ctx, map[string]any{
		SessionFieldToken:      uuid.NewString(),
		SessionFieldUserID:     userID.Hex(),
		SessionFieldCreateDate: now,
		SessionFieldExpireDate: now.Add(lifetime),
		SessionFieldLastUsed:   now,
	})
	if err != nil {
		return nil, err.Wrap("create session")
	}

	return &Session{handle}, nil
}

// FindByToken resolves a session by its token.
func (s *Sessions) FindByToken(ctx context.Context, token string) (*Session, fverrors.Error) {
	handle, err := s.manager.FindByUniqueField(ctx, SessionFieldToken, token)
	if err != nil {
		return nil, err.Wrap("find session by token")
	}

	return &Session{handle}, nil
}

// Touch moves the session's last-used stamp to now.
func (s *Sessions) Touch(ctx context.Context, session *Session) fverrors.Error {
	return session.SetField(
		ctx,
		SessionFieldLastUsed,
		time.Now().UTC().Truncate(time.Millisecond),
	)
}

// Session is the typed handle of one session row.
type Session struct {
	*entity.Handle
}

// Token returns the session token.
func (h *Session) Token(ctx context.Context) (string, fverrors.Error) {
	return getTyped[string](ctx, h.Handle, SessionFieldToken)
}

// UserID returns the identity of the session's user.
func (h *Session) UserID(ctx context.Context) (ident.ID, fverrors.Error) {
	hex, err := getTyped[string](ctx, h.Handle, SessionFieldUserID)
	if err != nil {
		return ident.Nil, err
	}

	id, parseErr := ident.Parse(hex)
	if parseErr != nil {
		return ident.Nil, parseErr.Wrap("session user")
	}

	return id, nil
}

// CreateDate returns when the session was opened.
func (h *Session) CreateDate(ctx context.Context) (time.Time, fverrors.Error) {
	return getTyped[time.Time](ctx, h.Handle, SessionFieldCreateDate)
}

// ExpireDate returns when the session stops being valid.
func (h *Session) ExpireDate(ctx context.Context) (time.Time, fverrors.Error) {
	return getTyped[time.Time](ctx, h.Handle, SessionFieldExpireDate)
}

// LastUsed returns the session's last-used stamp.
func (h *Session) LastUsed(ctx context.Context) (time.Time, fverrors.Error) {
	return getTyped[time.Time](ctx, h.Handle, SessionFieldLastUsed)
}

// Expired reports whether the session is past its expiry at the given
// instant.
func (h *Session) Expired(ctx context.Context, now time.Time) (bool, fverrors.Error) {
	expire, err := h.ExpireDate(ctx)
	if err != nil {
		return false, err
	}

	return now.After(expire), nil
}
