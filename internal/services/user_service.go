package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nur1kesh/ai-model-marketplace/internal/auth"
	"github.com/nur1kesh/ai-model-marketplace/internal/models"
	repo "github.com/nur1kesh/ai-model-marketplace/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// UserService is the identity provider. A user id is the ledger
// identity everywhere else.
type UserService struct {
	r  repo.Users
	tm *auth.TokenManager
}

func NewUserService(r repo.Users, tm *auth.TokenManager) *UserService {
	return &UserService{r: r, tm: tm}
}

func (s *UserService) Register(ctx context.Context, username, email, password string) (models.User, error) {
	u := models.User{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Role:     models.RoleUser,
	}
	if err := u.Validate(); err != nil {
		return models.User{}, err
	}
	if len(password) < 8 {
		return models.User{}, errors.New("password too short")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	return s.r.Create(ctx, u.Username, u.Email, hash, u.Role)
}

type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    time.Duration `json:"expires_in"`
}

func (s *UserService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.r.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.pair(u.ID, u.Role)
}

func (s *UserService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, isRefresh, err := s.tm.ParseAny(refreshToken)
	if err != nil || !isRefresh {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.pair(claims.UserID, claims.Role)
}

func (s *UserService) GetByID(ctx context.Context, id string) (models.User, error) {
	return s.r.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.r.List(ctx)
}

// EnsureSystemUsers creates the owner and treasury identities on first
// start and returns the owner. Idempotent.
func (s *UserService) EnsureSystemUsers(ctx context.Context, username, email, password string) (models.User, error) {
	owner, err := s.r.GetByRole(ctx, models.RoleOwner)
	if err != nil {
		hash, herr := auth.HashPassword(password)
		if herr != nil {
			return models.User{}, herr
		}
		owner, err = s.r.Create(ctx, username, email, hash, models.RoleOwner)
		if err != nil {
			return models.User{}, err
		}
	}
	if _, err := s.r.GetByRole(ctx, models.RoleTreasury); err != nil {
		// The treasury never logs in; its hash is an unusable random.
		hash, herr := auth.HashPassword(owner.ID + email)
		if herr != nil {
			return models.User{}, herr
		}
		if _, err := s.r.Create(ctx, "marketplace-treasury", "treasury@"+s.domainOf(email), hash, models.RoleTreasury); err != nil {
			return models.User{}, err
		}
	}
	return owner, nil
}

func (s *UserService) domainOf(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[i+1:]
	}
	return "marketplace.local"
}

func (s *UserService) pair(userID, role string) (TokenPair, error) {
	access, refresh, exp, err := s.tm.GeneratePair(userID, role)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    time.Until(exp).Truncate(time.Second),
	}, nil
}
