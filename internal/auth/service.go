package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/novelforge/novelforge/internal/shared"
	"github.com/novelforge/novelforge/internal/token"
)

// bcrypt ignores input past 72 bytes and refuses to hash it.
const maxPasswordBytes = 72

// Service wraps registration and login rules.
type Service struct {
	repo   Repository
	codec  *token.Codec
	csrf   *shared.CSRFManager
	admins map[string]struct{}
}

// NewService constructs a new Service. Usernames listed in admins receive
// the admin role when they register.
func NewService(repo Repository, codec *token.Codec, csrf *shared.CSRFManager, admins []string) *Service {
	set := make(map[string]struct{}, len(admins))
	for _, name := range admins {
		if name = CanonicalUsername(name); name != "" {
			set[name] = struct{}{}
		}
	}
	return &Service{repo: repo, codec: codec, csrf: csrf, admins: set}
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	username := CanonicalUsername(in.Username)
	if strings.ContainsAny(username, " \t\r\n@") {
		return Session{}, shared.NewValidationError("username", "must not contain spaces or @")
	}
	if len(in.Password) > maxPasswordBytes {
		return Session{}, shared.NewValidationError("password", "must be at most 72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("auth: hash password: %w", err)
	}
	role := shared.RoleUser
	if _, ok := s.admins[username]; ok {
		role = shared.RoleAdmin
	}
	user, err := s.repo.CreateUser(ctx, User{
		Username:     username,
		Email:        CanonicalEmail(in.Email),
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		return Session{}, err
	}
	return s.issue(user)
}

// Authenticate validates username-or-email and password credentials.
func (s *Service) Authenticate(ctx context.Context, login, password string) (User, error) {
	user, err := s.repo.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, shared.ErrInvalidCredentials
		}
		return User{}, err
	}
	if !user.IsActive {
		return User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a session token.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	user, err := s.Authenticate(ctx, in.Login, in.Password)
	if err != nil {
		return Session{}, err
	}
	return s.issue(user)
}

// Profile returns the stored profile of the identity's user.
func (s *Service) Profile(ctx context.Context, id shared.Identity) (Profile, error) {
	user, err := s.repo.FindByID(ctx, id.UserID)
	if err != nil {
		return Profile{}, err
	}
	return user.profile(), nil
}

func (s *Service) issue(user User) (Session, error) {
	raw, err := s.codec.Issue(token.Claim{SubjectID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		return Session{}, fmt.Errorf("auth: issue token: %w", err)
	}
	claim, err := s.codec.Verify(raw)
	if err != nil {
		return Session{}, fmt.Errorf("auth: verify issued token: %w", err)
	}
	id := shared.Identity{UserID: user.ID, Username: user.Username, Role: user.Role, IssuedAt: claim.IssuedAt}
	return Session{
		Token:     raw,
		CSRFToken: s.csrf.Token(id),
		ExpiresAt: claim.IssuedAt.Add(s.codec.TTL()),
		User:      user.profile(),
	}, nil
}
