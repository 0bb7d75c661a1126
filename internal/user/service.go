package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/vapmail16/synonym-quest-sub000/internal/user/entity"
	"github.com/vapmail16/synonym-quest-sub000/pkg/database"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Repository is implemented by *repo.UserRepo. Lookups return sql.ErrNoRows.
type Repository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	UpdateProfile(ctx context.Context, u *entity.User) error
	TouchLogin(ctx context.Context, id int64) error
	TouchActive(ctx context.Context, id int64) error
}

const MinPasswordLength = 6

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrDisabled        = errors.New("account is disabled")
	ErrBadCredentials  = errors.New("invalid email or password")
	ErrInvalidEmail    = errors.New("please provide a valid email address")
	ErrInvalidUsername = errors.New("username must be 3-30 characters of letters, numbers or underscores")
	ErrWeakPassword    = fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	ErrEmailTaken      = errors.New("a user with this email already exists")
	ErrUsernameTaken   = errors.New("a user with this username already exists")
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)
)

// UserService orchestrates registration, authentication and profile flows.
type UserService struct {
	repo   Repository
	hasher PasswordHasher
}

func NewUserService(r Repository, hasher PasswordHasher) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &UserService{repo: r, hasher: hasher}
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates input, hashes the password and creates the user.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(in.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	if err := s.ensureFree(ctx, username, email, 0); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Preferences:  entity.Preferences{},
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// ensureFree checks username/email uniqueness, ignoring the user selfID.
func (s *UserService) ensureFree(ctx context.Context, username, email string, selfID int64) error {
	if u, err := s.repo.GetByEmail(ctx, email); err == nil && u.ID != selfID {
		return ErrEmailTaken
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if u, err := s.repo.GetByUsername(ctx, username); err == nil && u.ID != selfID {
		return ErrUsernameTaken
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return nil
}

// Authenticate checks email + password. Unknown emails and wrong passwords
// both return ErrBadCredentials to avoid user enumeration.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrBadCredentials
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	if !u.IsActive {
		return nil, ErrDisabled
	}
	if err := s.repo.TouchLogin(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// Touch records activity; failures are not interesting to callers.
func (s *UserService) Touch(ctx context.Context, id int64) {
	_ = s.repo.TouchActive(ctx, id)
}

// ProfileInput updates the optional profile fields.
type ProfileInput struct {
	Username    *string             `json:"username"`
	Email       *string             `json:"email"`
	Preferences *entity.Preferences `json:"preferences"`
}

func (s *UserService) UpdateProfile(ctx context.Context, id int64, in ProfileInput) (*entity.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if !usernamePattern.MatchString(username) {
			return nil, ErrInvalidUsername
		}
		u.Username = username
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if !emailPattern.MatchString(email) {
			return nil, ErrInvalidEmail
		}
		u.Email = email
	}
	if in.Preferences != nil {
		merged := entity.Preferences{}
		for k, v := range u.Preferences {
			merged[k] = v
		}
		for k, v := range *in.Preferences {
			merged[k] = v
		}
		u.Preferences = merged
	}
	if err := s.ensureFree(ctx, u.Username, u.Email, u.ID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}
