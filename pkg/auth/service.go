// Package auth registers users, checks passwords, and issues and resolves
// bearer tokens.
package auth

import (
	"context"
	"time"

	"github.com/fluxorio/todoapi/pkg/core"
	"github.com/fluxorio/todoapi/pkg/models"
	"github.com/fluxorio/todoapi/pkg/store"
	"github.com/fluxorio/todoapi/pkg/validation"
)

// Event names reported to the Recorder
const (
	EventRegister     = "register"
	EventLogin        = "login"
	EventLoginFailed  = "login_failed"
	EventTokenInvalid = "token_invalid"
)

// Recorder observes authentication outcomes
type Recorder interface {
	RecordAuthEvent(event string)
}

const maxPasswordBytes = 72

// Credentials is the body of register and login requests
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Token is an issued access token
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Service implements register, login and token resolution
type Service struct {
	store    *store.Store
	hasher   Hasher
	tokens   *TokenIssuer
	now      func() time.Time
	logger   core.Logger
	recorder Recorder
}

// NewService creates an auth service. logger and recorder may be nil.
func NewService(s *store.Store, hasher Hasher, tokens *TokenIssuer, logger core.Logger, recorder Recorder) *Service {
	if logger == nil {
		logger = core.NewNopLogger()
	}
	return &Service{
		store:    s,
		hasher:   hasher,
		tokens:   tokens,
		now:      time.Now,
		logger:   logger,
		recorder: recorder,
	}
}

func (s *Service) record(event string) {
	if s.recorder != nil {
		s.recorder.RecordAuthEvent(event)
	}
}

// Register creates an active user. A registered email is a Conflict.
func (s *Service) Register(ctx context.Context, in Credentials) (*models.User, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	// bcrypt reads at most 72 bytes; the tag above counts characters
	if len(in.Password) > maxPasswordBytes {
		return nil, core.Validation("password: must be at most %d bytes", maxPasswordBytes)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, core.Internal(err, "hash password")
	}

	var user *models.User
	err = s.store.InTx(ctx, func(tx *store.Store) error {
		_, err := tx.Users.ByEmail(ctx, in.Email)
		if err == nil {
			return core.Conflict("Email already registered")
		}
		if !core.IsKind(err, core.KindNotFound) {
			return err
		}
		user, err = tx.Users.Create(ctx, in.Email, hash, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(EventRegister)
	s.logger.WithContext(ctx).Infof("user %d registered", user.ID)
	return user, nil
}

// Login checks the password and issues a token. Unknown email and wrong
// password are the same Unauthorized error; a disabled account is BadRequest.
func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	user, err := s.store.Users.ByEmail(ctx, email)
	if err != nil && !core.IsKind(err, core.KindNotFound) {
		return nil, err
	}
	if user == nil || !s.hasher.Verify(user.HashedPassword, password) {
		s.record(EventLoginFailed)
		return nil, core.Unauthorized("Incorrect email or password")
	}
	if !user.IsActive {
		s.record(EventLoginFailed)
		return nil, core.BadRequest("Inactive user")
	}

	signed, expires, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, core.Internal(err, "issue token")
	}

	s.record(EventLogin)
	return &Token{AccessToken: signed, ExpiresAt: expires}, nil
}

// Authenticate resolves a bearer token to its active user. A bad token or a
// user that no longer exists is Unauthorized; a disabled user is BadRequest.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		s.record(EventTokenInvalid)
		return nil, err
	}

	user, err := s.store.Users.ByID(ctx, userID)
	if err != nil {
		if core.IsKind(err, core.KindNotFound) {
			s.record(EventTokenInvalid)
			return nil, core.Unauthorized("Could not validate credentials")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, core.BadRequest("Inactive user")
	}
	return user, nil
}
