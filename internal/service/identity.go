package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"jumjum/backend/internal/config"
	"jumjum/backend/internal/domain"
	"jumjum/backend/internal/store"
	"jumjum/backend/internal/xid"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUserNotFound       = fmt.Errorf("%w: user not found", ErrUnauthorized)
	ErrAccountDisabled    = fmt.Errorf("%w: account is deactivated", ErrUnauthorized)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid password", ErrUnauthorized)
	ErrRoleMismatch       = fmt.Errorf("%w: role mismatch", ErrUnauthorized)
)

type SeedPasswords struct {
	Bar     string
	Kitchen string
	Admin   string
}

// Identity owns staff accounts and login validation. Token issuing lives at
// the HTTP boundary.
type Identity struct {
	repo   store.UserStore
	logger *slog.Logger
	scheme string
	seeds  SeedPasswords
	now    func() time.Time
}

func NewIdentity(repo store.UserStore, scheme string, seeds SeedPasswords, logger *slog.Logger) *Identity {
	if scheme == "" {
		scheme = config.PasswordSchemeSHA256
	}
	return &Identity{
		repo:   repo,
		logger: orDiscard(logger),
		scheme: scheme,
		seeds:  seeds,
		now:    utcNow,
	}
}

// HashPassword digests plain with the configured scheme. The default is an
// unsalted SHA-256 hex digest, matching records created by earlier releases.
func (s *Identity) HashPassword(plain string) (string, error) {
	if s.scheme == config.PasswordSchemeBcrypt {
		hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
		if err != nil {
			return "", err
		}
		return string(hashed), nil
	}
	return sha256Hex(plain), nil
}

// ValidateLogin checks, in order: the account exists, it is active, the
// password matches, and the requested role fits. Admins pass any role check.
func (s *Identity) ValidateLogin(ctx context.Context, username string, password string, role string) (domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return domain.User{}, invalidInput("username and password are required")
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	if !user.IsActive {
		return domain.User{}, ErrAccountDisabled
	}
	if !verifyPassword(user.PasswordHash, password) {
		return domain.User{}, ErrInvalidCredentials
	}
	if role != "" && user.Role != role && user.Role != domain.RoleAdmin {
		return domain.User{}, fmt.Errorf("%w: user is not authorized for %s role", ErrRoleMismatch, role)
	}

	if s.scheme == config.PasswordSchemeBcrypt && !isBcryptHash(user.PasswordHash) {
		s.upgradePassword(ctx, *user, password)
	}
	return *user, nil
}

func (s *Identity) upgradePassword(ctx context.Context, user domain.User, password string) {
	hashed, err := s.HashPassword(password)
	if err != nil {
		s.logger.Warn("password upgrade skipped", slog.String("user_id", user.UserID), slog.Any("error", err))
		return
	}
	user.PasswordHash = hashed
	user.UpdatedAt = s.now()
	if _, err := s.repo.UpdateUser(ctx, user); err != nil {
		s.logger.Warn("password upgrade failed", slog.String("user_id", user.UserID), slog.Any("error", err))
	}
}

func (s *Identity) Register(ctx context.Context, req domain.RegisterRequest) (domain.UserView, error) {
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Name = strings.TrimSpace(req.Name)
	if req.Username == "" || req.Password == "" || req.Name == "" || req.Role == "" {
		return domain.UserView{}, invalidInput("all fields are required: username, password, name, role")
	}
	if !domain.IsRole(req.Role) {
		return domain.UserView{}, invalidInput("invalid role, must be: bar, kitchen, or admin")
	}

	hashed, err := s.HashPassword(req.Password)
	if err != nil {
		return domain.UserView{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	created, err := s.repo.CreateUser(ctx, domain.User{
		UserID:       xid.NewAt("USER", now),
		Username:     req.Username,
		PasswordHash: hashed,
		Name:         req.Name,
		Role:         req.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return domain.UserView{}, fmt.Errorf("username already exists: %w", store.ErrDuplicateKey)
		}
		return domain.UserView{}, err
	}

	s.logger.Info("user registered",
		slog.String("action", "user_register"),
		slog.String("user_id", created.UserID),
		slog.String("role", created.Role),
	)
	return created.View(), nil
}

func (s *Identity) ListUsers(ctx context.Context) ([]domain.UserView, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]domain.UserView, 0, len(users))
	for _, user := range users {
		views = append(views, user.View())
	}
	return views, nil
}

func (s *Identity) UpdateUser(ctx context.Context, userID string, patch domain.UserPatch) (domain.UserView, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return domain.UserView{}, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.UserView{}, invalidInput("name cannot be empty")
		}
		user.Name = name
	}
	if patch.Role != nil {
		if !domain.IsRole(*patch.Role) {
			return domain.UserView{}, invalidInput("invalid role, must be: bar, kitchen, or admin")
		}
		user.Role = *patch.Role
	}
	if patch.IsActive != nil {
		if !*patch.IsActive {
			if err := s.guardSelf(ctx, userID); err != nil {
				return domain.UserView{}, err
			}
		}
		user.IsActive = *patch.IsActive
	}
	if patch.Password != nil {
		if *patch.Password == "" {
			return domain.UserView{}, invalidInput("password cannot be empty")
		}
		hashed, err := s.HashPassword(*patch.Password)
		if err != nil {
			return domain.UserView{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hashed
	}
	user.UpdatedAt = s.now()

	updated, err := s.repo.UpdateUser(ctx, *user)
	if err != nil {
		return domain.UserView{}, err
	}
	return updated.View(), nil
}

// Deactivate is the only removal users get; the record stays.
func (s *Identity) Deactivate(ctx context.Context, userID string) (domain.UserView, error) {
	inactive := false
	view, err := s.UpdateUser(ctx, userID, domain.UserPatch{IsActive: &inactive})
	if err != nil {
		return domain.UserView{}, err
	}

	attrs := []any{slog.String("action", "user_deactivate"), slog.String("user_id", userID)}
	if actor, ok := ActorFromContext(ctx); ok {
		attrs = append(attrs, slog.String("actor", actor.Username))
	}
	s.logger.Info("user deactivated", attrs...)
	return view, nil
}

func (s *Identity) guardSelf(ctx context.Context, userID string) error {
	if actor, ok := ActorFromContext(ctx); ok && actor.UserID == userID {
		return invalidInput("cannot deactivate your own account")
	}
	return nil
}

// SeedDefaultUsers creates the bar, kitchen and admin accounts. Usernames that
// already exist are left untouched.
func (s *Identity) SeedDefaultUsers(ctx context.Context) ([]string, error) {
	defaults := []struct {
		username string
		password string
		fallback string
		name     string
		role     string
	}{
		{"jamjambar", s.seeds.Bar, "bar@123", "Bar Staff", domain.RoleBar},
		{"jamjamkitchen", s.seeds.Kitchen, "kitchen@123", "Kitchen Staff", domain.RoleKitchen},
		{"admin", s.seeds.Admin, "admin@123", "Administrator", domain.RoleAdmin},
	}

	created := make([]string, 0, len(defaults))
	var errs []error
	for _, d := range defaults {
		password := d.password
		if password == "" {
			password = d.fallback
			s.logger.Warn("using default dev credentials for seed user", slog.String("username", d.username))
		}
		_, err := s.Register(ctx, domain.RegisterRequest{
			Username: d.username,
			Password: password,
			Name:     d.name,
			Role:     d.role,
		})
		switch {
		case err == nil:
			created = append(created, d.username)
		case errors.Is(err, store.ErrDuplicateKey):
		default:
			s.logger.Error("failed to seed user", slog.String("username", d.username), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("seed %s: %w", d.username, err))
		}
	}
	return created, errors.Join(errs...)
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || input == "" {
		return false
	}
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(sha256Hex(input))) == 1
}

func sha256Hex(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func isBcryptHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
