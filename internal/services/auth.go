package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/kpi-visual-backend/internal/data/repos"
	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domainuser "github.com/yungbote/kpi-visual-backend/internal/domain/user"
	"github.com/yungbote/kpi-visual-backend/internal/platform/apierr"
	"github.com/yungbote/kpi-visual-backend/internal/platform/ctxutil"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserDisabled       = errors.New("account is disabled")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWrongPassword      = errors.New("old password is incorrect")
	ErrNoPrincipal        = errors.New("no authenticated user in context")
)

var bcryptCost = 12

// Claims is the HS256 access token body; Subject carries the username.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type LoginResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        *types.User `json:"user"`
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	Me(ctx context.Context) (*types.User, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) (*types.User, error)
	EnsureDefaultAdmin(ctx context.Context, username, password string) error
}

type authService struct {
	log          *logger.Logger
	userRepo     repos.UserRepo
	jwtSecretKey []byte
	accessTTL    time.Duration
	now          func() time.Time
}

func NewAuthService(baseLog *logger.Logger, userRepo repos.UserRepo, jwtSecretKey string, accessTTL time.Duration) AuthService {
	if accessTTL <= 0 {
		accessTTL = 8 * time.Hour
	}
	return &authService{
		log:          baseLog.With("service", "AuthService"),
		userRepo:     userRepo,
		jwtSecretKey: []byte(jwtSecretKey),
		accessTTL:    accessTTL,
		now:          time.Now,
	}
}

func hashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// checkPassword compares plain against stored. A stored value that is not a bcrypt
// hash is a legacy plaintext password; upgraded reports that it matched and should be rehashed.
func checkPassword(stored, plain string) (ok bool, upgrade bool) {
	if _, err := bcrypt.Cost([]byte(stored)); err != nil {
		return stored != "" && stored == plain, true
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil, false
}

func (as *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apierr.Unauthorized("invalid_credentials", ErrInvalidCredentials)
	}
	dbc := dbctx.New(ctx)
	user, err := as.userRepo.GetByUsername(dbc, username)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, apierr.Unauthorized("invalid_credentials", ErrInvalidCredentials)
	}
	ok, upgrade := checkPassword(user.HashedPassword, password)
	if !ok {
		return nil, apierr.Unauthorized("invalid_credentials", ErrInvalidCredentials)
	}
	if !user.IsActive {
		return nil, apierr.Forbidden("user_disabled", ErrUserDisabled)
	}

	now := as.now().UTC()
	updates := map[string]interface{}{"last_login": now}
	if upgrade {
		hashed, hErr := hashPassword(password)
		if hErr != nil {
			return nil, hErr
		}
		updates["hashed_password"] = hashed
		user.HashedPassword = hashed
		as.log.Info("Upgraded legacy password hash", "username", user.Username)
	}
	if err := as.userRepo.UpdateFields(dbc, user.ID, updates); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	user.LastLogin = &now

	token, err := as.generateAccessToken(user, now)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(as.accessTTL / time.Second),
		User:        user,
	}, nil
}

func (as *authService) generateAccessToken(user *types.User, now time.Time) (string, error) {
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(as.jwtSecretKey)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// SetContextFromToken validates the token and attaches the caller's principal. The
// user is reloaded so deactivation takes effect before the token expires.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return as.jwtSecretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.now))
	if err != nil || !token.Valid || claims.Subject == "" {
		return ctx, apierr.Unauthorized("invalid_token", ErrInvalidToken)
	}
	user, err := as.userRepo.GetByUsername(dbctx.New(ctx), claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("load user: %w", err)
	}
	if user == nil || !user.IsActive {
		return ctx, apierr.Unauthorized("invalid_token", ErrInvalidToken)
	}
	return ctxutil.WithPrincipal(ctx, &ctxutil.Principal{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}), nil
}

func (as *authService) currentUser(ctx context.Context) (*types.User, error) {
	p := ctxutil.GetPrincipal(ctx)
	if p == nil {
		return nil, apierr.Unauthorized("unauthorized", ErrNoPrincipal)
	}
	user, err := as.userRepo.GetByID(dbctx.New(ctx), p.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, apierr.Unauthorized("unauthorized", ErrNoPrincipal)
	}
	return user, nil
}

func (as *authService) Me(ctx context.Context) (*types.User, error) {
	return as.currentUser(ctx)
}

func (as *authService) ChangePassword(ctx context.Context, oldPassword, newPassword string) (*types.User, error) {
	user, err := as.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if ok, _ := checkPassword(user.HashedPassword, oldPassword); !ok {
		return nil, apierr.BadRequest("wrong_password", ErrWrongPassword)
	}
	if err := ValidatePassword(newPassword); err != nil {
		return nil, err
	}
	hashed, err := hashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	if err := as.userRepo.UpdateFields(dbctx.New(ctx), user.ID, map[string]interface{}{"hashed_password": hashed}); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}
	user.HashedPassword = hashed
	return user, nil
}

// EnsureDefaultAdmin creates the configured admin account when no user has that name.
func (as *authService) EnsureDefaultAdmin(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil
	}
	dbc := dbctx.New(ctx)
	existing, err := as.userRepo.GetByUsername(dbc, username)
	if err != nil {
		return fmt.Errorf("lookup default admin: %w", err)
	}
	if existing != nil {
		return nil
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	if _, err := as.userRepo.Create(dbc, []*types.User{{
		Username:       username,
		DisplayName:    "Administrator",
		HashedPassword: hashed,
		Role:           domainuser.RoleAdmin,
		IsActive:       true,
	}}); err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}
	as.log.Info("Created default admin", "username", username)
	return nil
}
