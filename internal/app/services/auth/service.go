package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"stayfinder/internal/app/authz"
	domainuser "stayfinder/internal/domain/user"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
	ErrTokenRequired      = errors.New("auth: token required")
	ErrInvalidToken       = errors.New("auth: invalid or expired token")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenClaims is what an access token vouches for.
type TokenClaims struct {
	UserID    string
	Roles     []domainuser.Role
	ExpiresAt time.Time
}

type TokenIssuer interface {
	Issue(user *domainuser.User) (token string, expiresAt time.Time, err error)
	Verify(token string) (TokenClaims, error)
}

type Service struct {
	Users     domainuser.Repository
	Passwords PasswordHasher
	Tokens    TokenIssuer
	Logger    *slog.Logger
	Now       func() time.Time
}

type RegisterParams struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Phone      string
	WantToHost bool
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	User      *domainuser.User
	Token     string
	ExpiresAt time.Time
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, domainuser.ErrEmailRequired
	}
	if utf8.RuneCountInString(params.Password) < 8 {
		return nil, ErrPasswordTooShort
	}
	if _, err := s.Users.ByEmail(ctx, email); err == nil {
		return nil, domainuser.ErrEmailAlreadyUsed
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	roles := []domainuser.Role{domainuser.RoleGuest}
	if params.WantToHost {
		roles = append(roles, domainuser.RoleHost)
	}
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		PasswordHash: hash,
		Phone:        params.Phone,
		Roles:        roles,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", "user_id", user.ID, "roles", user.Roles)
	}
	return s.issue(user)
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if s.Logger != nil {
		s.Logger.Info("user authenticated", "user_id", user.ID)
	}
	return s.issue(user)
}

func (s *Service) Me(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	return s.Users.ByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id domainuser.ID, update domainuser.ProfileUpdate) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	user, err := s.Users.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := user.UpdateProfile(update, s.now()); err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BecomeHost grants the host role and returns a token carrying it.
func (s *Service) BecomeHost(ctx context.Context, id domainuser.ID) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	user, err := s.Users.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.HasRole(domainuser.RoleHost) {
		if err := user.EnsureRole(domainuser.RoleHost, s.now()); err != nil {
			return nil, err
		}
		if err := s.Users.Save(ctx, user); err != nil {
			return nil, err
		}
		if s.Logger != nil {
			s.Logger.Info("user became host", "user_id", user.ID)
		}
	}
	return s.issue(user)
}

// Resolve verifies token and returns the caller with the roles currently
// stored for the user, so a role granted after issue is honoured.
func (s *Service) Resolve(ctx context.Context, token string) (authz.Actor, error) {
	if err := s.ensureDependencies(); err != nil {
		return authz.Actor{}, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return authz.Actor{}, ErrTokenRequired
	}
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return authz.Actor{}, ErrInvalidToken
	}
	user, err := s.Users.ByID(ctx, domainuser.ID(claims.UserID))
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return authz.Actor{}, ErrInvalidToken
		}
		return authz.Actor{}, err
	}
	return authz.Actor{ID: string(user.ID), Roles: append([]domainuser.Role(nil), user.Roles...)}, nil
}

func (s *Service) issue(user *domainuser.User) (*AuthResult, error) {
	token, expiresAt, err := s.Tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Users == nil:
		return errors.New("auth: user repository required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token issuer required")
	default:
		return nil
	}
}
