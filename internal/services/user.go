package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yungbote/kpi-visual-backend/internal/data/dberr"
	"github.com/yungbote/kpi-visual-backend/internal/data/repos"
	repouser "github.com/yungbote/kpi-visual-backend/internal/data/repos/user"
	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domainuser "github.com/yungbote/kpi-visual-backend/internal/domain/user"
	"github.com/yungbote/kpi-visual-backend/internal/platform/apierr"
	"github.com/yungbote/kpi-visual-backend/internal/platform/ctxutil"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameTaken    = errors.New("username already exists")
	ErrEmailTaken       = errors.New("email already in use")
	ErrInvalidUsername  = errors.New("username must be 3-50 characters of letters, digits or underscore")
	ErrInvalidName      = errors.New("display_name must be 1-100 characters")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrInvalidRole      = errors.New("role must be one of admin, uploader, viewer")
	ErrWeakPassword     = errors.New("password must be at least 8 characters with upper, lower case letters and a digit")
	ErrSelfDeactivation = errors.New("cannot deactivate your own account")
	ErrSelfDeletion     = errors.New("cannot delete your own account")
	ErrSelfReset        = errors.New("use the change password endpoint for your own account")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)

const (
	defaultUserPageSize = 20
	maxUserPageSize     = 100
)

// ValidatePassword enforces the minimum password policy.
func ValidatePassword(pw string) error {
	if len(pw) < 8 {
		return apierr.BadRequest("weak_password", ErrWeakPassword)
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return apierr.BadRequest("weak_password", ErrWeakPassword)
	}
	return nil
}

func validateDisplayName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > 100 {
		return apierr.BadRequest("invalid_display_name", ErrInvalidName)
	}
	return nil
}

// normalizeEmail returns nil for blank input.
func normalizeEmail(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil, nil
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return nil, apierr.BadRequest("invalid_email", ErrInvalidEmail)
	}
	return &s, nil
}

type CreateUserInput struct {
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Email       *string `json:"email"`
	Password    string  `json:"password"`
	Role        string  `json:"role"`
}

type UpdateUserInput struct {
	DisplayName *string `json:"display_name"`
	Email       *string `json:"email"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"is_active"`
}

type ListUsersInput struct {
	Query    string
	Role     string
	Page     int
	PageSize int
}

type UserPage struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Items    []*types.User `json:"items"`
}

type UserService interface {
	List(ctx context.Context, in ListUsersInput) (*UserPage, error)
	Create(ctx context.Context, in CreateUserInput) (*types.User, error)
	Get(ctx context.Context, id uint) (*types.User, error)
	Update(ctx context.Context, id uint, in UpdateUserInput) (*types.User, error)
	Deactivate(ctx context.Context, id uint) error
	ResetPassword(ctx context.Context, id uint, newPassword string) error
}

type userService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(baseLog *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		log:      baseLog.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (us *userService) List(ctx context.Context, in ListUsersInput) (*UserPage, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.PageSize
	if size < 1 {
		size = defaultUserPageSize
	}
	if size > maxUserPageSize {
		size = maxUserPageSize
	}
	role := strings.TrimSpace(in.Role)
	if role != "" && !domainuser.ValidRole(role) {
		return nil, apierr.BadRequest("invalid_role", ErrInvalidRole)
	}
	users, total, err := us.userRepo.List(dbctx.New(ctx), repouser.ListFilter{
		Query:  in.Query,
		Role:   role,
		Offset: (page - 1) * size,
		Limit:  size,
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []*types.User{}
	}
	return &UserPage{Total: total, Page: page, PageSize: size, Items: users}, nil
}

func (us *userService) Create(ctx context.Context, in CreateUserInput) (*types.User, error) {
	username := strings.TrimSpace(in.Username)
	if !usernamePattern.MatchString(username) {
		return nil, apierr.BadRequest("invalid_username", ErrInvalidUsername)
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if err := validateDisplayName(displayName); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = domainuser.RoleViewer
	}
	if !domainuser.ValidRole(role) {
		return nil, apierr.BadRequest("invalid_role", ErrInvalidRole)
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	dbc := dbctx.New(ctx)
	existing, err := us.userRepo.GetByUsername(dbc, username)
	if err != nil {
		return nil, fmt.Errorf("lookup username: %w", err)
	}
	if existing != nil {
		return nil, apierr.Conflict("username_taken", ErrUsernameTaken)
	}
	if email != nil {
		taken, err := us.userRepo.EmailTaken(dbc, *email, 0)
		if err != nil {
			return nil, fmt.Errorf("lookup email: %w", err)
		}
		if taken {
			return nil, apierr.Conflict("email_taken", ErrEmailTaken)
		}
	}
	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &types.User{
		Username:       username,
		DisplayName:    displayName,
		Email:          email,
		HashedPassword: hashed,
		Role:           role,
		IsActive:       true,
	}
	if _, err := us.userRepo.Create(dbc, []*types.User{u}); err != nil {
		if dberr.IsUniqueViolation(err) {
			return nil, apierr.Conflict("user_conflict", errors.Join(ErrUsernameTaken, err))
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	us.log.Info("User created", "username", username, "role", role, "by", principalName(ctx))
	return u, nil
}

func (us *userService) load(ctx context.Context, id uint) (*types.User, error) {
	u, err := us.userRepo.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, apierr.NotFound("user_not_found", ErrUserNotFound)
	}
	return u, nil
}

func (us *userService) Get(ctx context.Context, id uint) (*types.User, error) {
	return us.load(ctx, id)
}

func (us *userService) Update(ctx context.Context, id uint, in UpdateUserInput) (*types.User, error) {
	u, err := us.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	updates := map[string]interface{}{}

	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if err := validateDisplayName(name); err != nil {
			return nil, err
		}
		updates["display_name"] = name
		u.DisplayName = name
	}
	if in.Email != nil {
		email, err := normalizeEmail(in.Email)
		if err != nil {
			return nil, err
		}
		if email != nil {
			taken, err := us.userRepo.EmailTaken(dbc, *email, u.ID)
			if err != nil {
				return nil, fmt.Errorf("lookup email: %w", err)
			}
			if taken {
				return nil, apierr.Conflict("email_taken", ErrEmailTaken)
			}
		}
		updates["email"] = email
		u.Email = email
	}
	if in.Role != nil {
		role := strings.TrimSpace(*in.Role)
		if !domainuser.ValidRole(role) {
			return nil, apierr.BadRequest("invalid_role", ErrInvalidRole)
		}
		updates["role"] = role
		u.Role = role
	}
	if in.IsActive != nil {
		if !*in.IsActive && isSelf(ctx, u.ID) {
			return nil, apierr.BadRequest("self_deactivation", ErrSelfDeactivation)
		}
		updates["is_active"] = *in.IsActive
		u.IsActive = *in.IsActive
	}

	if err := us.userRepo.UpdateFields(dbc, u.ID, updates); err != nil {
		if dberr.IsUniqueViolation(err) {
			return nil, apierr.Conflict("email_taken", errors.Join(ErrEmailTaken, err))
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// Deactivate is the soft delete: the row stays and the account can no longer log in.
func (us *userService) Deactivate(ctx context.Context, id uint) error {
	u, err := us.load(ctx, id)
	if err != nil {
		return err
	}
	if isSelf(ctx, u.ID) {
		return apierr.BadRequest("self_deletion", ErrSelfDeletion)
	}
	if err := us.userRepo.UpdateFields(dbctx.New(ctx), u.ID, map[string]interface{}{"is_active": false}); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	us.log.Info("User deactivated", "username", u.Username, "by", principalName(ctx))
	return nil
}

func (us *userService) ResetPassword(ctx context.Context, id uint, newPassword string) error {
	u, err := us.load(ctx, id)
	if err != nil {
		return err
	}
	if isSelf(ctx, u.ID) {
		return apierr.BadRequest("self_reset", ErrSelfReset)
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := us.userRepo.UpdateFields(dbctx.New(ctx), u.ID, map[string]interface{}{"hashed_password": hashed}); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	us.log.Info("Password reset", "username", u.Username, "by", principalName(ctx))
	return nil
}

func isSelf(ctx context.Context, id uint) bool {
	p := ctxutil.GetPrincipal(ctx)
	return p != nil && p.UserID == id
}

func principalName(ctx context.Context) string {
	if p := ctxutil.GetPrincipal(ctx); p != nil {
		return p.Username
	}
	return ""
}
