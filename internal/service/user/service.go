package user

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"

	"uk.co.dudmesh.agora/internal/model"
)

const passwordCost = 10

type Config interface {
	JWTSecret() []byte
	TokenTTL() time.Duration
}

type Store interface {
	CreateAccount(ctx context.Context, account *model.Account, user *model.User) error
	FetchUser(ctx context.Context, id model.UserID) (*model.User, error)
	FetchUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateSignIn(ctx context.Context, id model.UserID, ip string, at time.Time) error
}

type EmailBlocker interface {
	Blocked(ctx context.Context, email string) (bool, error)
}

type service struct {
	config  Config
	store   Store
	blocker EmailBlocker
	now     func() time.Time
}

func New(config Config, store Store, blocker EmailBlocker) *service {
	return &service{config, store, blocker, time.Now}
}

// Create signs up a local user. The new user is neither confirmed nor
// approved, so it shows up as pending to moderators.
func (s *service) Create(ctx context.Context, params *model.CreateUserParams) (*model.User, error) {
	username := strings.TrimSpace(params.Username)
	email := strings.TrimSpace(params.Email)
	if username == "" || email == "" || params.Password == "" {
		return nil, model.ErrorInvalidEmailOrPassword
	}

	blocked, err := s.blocker.Blocked(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("checking email domain: %w", err)
	}
	if blocked {
		return nil, model.ErrorEmailDomainBlocked
	}

	passwordBytes, err := bcrypt.GenerateFromPassword([]byte(params.Password), passwordCost)
	if err != nil {
		return nil, fmt.Errorf("generating encoded password: %w", err)
	}

	now := s.now().UTC()
	account := &model.Account{
		ID:          model.NewAccountID(),
		Username:    username,
		DisplayName: username,
		CreatedAt:   now,
	}
	user := &model.User{
		ID:        model.NewUserID(),
		CreatedAt: now,
		Email:     email,
		Password:  base64.StdEncoding.EncodeToString(passwordBytes),
		Confirmed: false,
		Approved:  false,
	}

	if err := s.store.CreateAccount(ctx, account, user); err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}

	return user, nil
}

func (s *service) Fetch(ctx context.Context, id model.UserID) (*model.User, error) {
	user, err := s.store.FetchUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return user, nil
}

// Authenticate checks the credentials, records the sign in address and
// returns a bearer token for the user.
func (s *service) Authenticate(ctx context.Context, email, password, ip string) (string, error) {
	user, err := s.store.FetchUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrorUserNotFound) {
			return "", model.ErrorInvalidEmailOrPassword
		}
		return "", err
	}

	hash, err := base64.StdEncoding.DecodeString(user.Password)
	if err != nil {
		return "", fmt.Errorf("decoding password: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", model.ErrorInvalidEmailOrPassword
	}

	now := s.now().UTC()
	if err := s.store.UpdateSignIn(ctx, user.ID, ip, now); err != nil {
		return "", fmt.Errorf("recording sign in: %w", err)
	}

	claims := jwt.StandardClaims{
		Subject:   string(user.ID),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.config.TokenTTL()).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.JWTSecret())
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// UserFromToken validates a bearer token and loads its user.
func (s *service) UserFromToken(ctx context.Context, raw string) (*model.User, error) {
	claims := &jwt.StandardClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.config.JWTSecret(), nil
	})
	if err != nil {
		return nil, model.ErrorNotPermitted
	}
	return s.Fetch(ctx, model.UserID(claims.Subject))
}
