package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/iliyamo/concert-calendar/internal/logger"
	"github.com/iliyamo/concert-calendar/internal/model"
	"github.com/iliyamo/concert-calendar/internal/repository"
	"github.com/iliyamo/concert-calendar/internal/utils"
)

// AuthService registers accounts, exchanges credentials for access tokens
// and resolves tokens back to users.  It is only wired in auth mode.
type AuthService struct {
	users  *repository.UserRepo
	secret string
	ttl    time.Duration
	cost   int
	log    *logger.Logger
	now    func() time.Time
}

// NewAuthService constructs an AuthService signing tokens with secret that
// live for ttl.  cost is the bcrypt cost used for new passwords.
func NewAuthService(users *repository.UserRepo, secret string, ttl time.Duration, cost int, log *logger.Logger) *AuthService {
	if log == nil {
		log = logger.Discard()
	}
	return &AuthService{users: users, secret: secret, ttl: ttl, cost: cost, log: log, now: time.Now}
}

// Register creates an account.  A taken username is reported before a
// taken email; both are ErrConflict.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email address is invalid", ErrValidation)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: username already registered", ErrConflict)
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: password cannot be used", ErrValidation)
	}
	u := &model.User{Username: username, Email: email, PasswordHash: hash, CreatedAt: s.now()}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: username or email already registered", ErrConflict)
		}
		return nil, err
	}
	s.log.Info("user registered", "user_id", u.ID)
	return u, nil
}

// Login verifies the credentials and issues an access token.  Unknown
// users and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (utils.AccessToken, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return utils.AccessToken{}, fmt.Errorf("%w: incorrect username or password", ErrUnauthenticated)
		}
		return utils.AccessToken{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return utils.AccessToken{}, fmt.Errorf("%w: incorrect username or password", ErrUnauthenticated)
	}
	return utils.NewAccessToken(s.secret, u.Username, s.ttl, s.now())
}

// ResolveCurrentUser maps a bearer token to its user.  Malformed, badly
// signed or expired tokens and deleted users are all ErrUnauthenticated.
func (s *AuthService) ResolveCurrentUser(ctx context.Context, token string) (*model.User, error) {
	username, err := utils.ParseAccessToken(s.secret, token)
	if err != nil {
		return nil, fmt.Errorf("%w: could not validate credentials", ErrUnauthenticated)
	}
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: could not validate credentials", ErrUnauthenticated)
		}
		return nil, err
	}
	return u, nil
}
