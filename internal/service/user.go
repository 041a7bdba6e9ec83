package service

import (
	"context"
	"errors"
	"html"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"task-manager-api/internal/core/auth"
	"task-manager-api/internal/core/errs"
	"task-manager-api/internal/core/validate"
	"task-manager-api/internal/domain"
	"task-manager-api/pkg/utils"
)

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileInput 空字段表示不修改
type ProfileInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	User         *domain.User `json:"user"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

var (
	reDigit   = regexp.MustCompile(`\d`)
	reUpper   = regexp.MustCompile(`[A-Z]`)
	reLower   = regexp.MustCompile(`[a-z]`)
	reSpecial = regexp.MustCompile(`[@$!%*?&]`)
)

// bcrypt 只接受 72 字节以内
func maxBytes(n int) func(string) bool { return func(s string) bool { return len(s) <= n } }

func usernameRule[T any](get func(*T) string, pred func(func(string) bool) func(string) bool) validate.Chain[T] {
	return validate.Chain[T]{
		validate.String("username", "Username must be at least 4 characters long.", get, pred(validate.MinLen(4))),
	}
}

func emailRule[T any](get func(*T) string, pred func(func(string) bool) func(string) bool) validate.Chain[T] {
	return validate.Chain[T]{
		validate.String("email", "Invalid email format.", get, pred(validate.Email)),
	}
}

func passwordRules[T any](get func(*T) string, pred func(func(string) bool) func(string) bool) validate.Chain[T] {
	return validate.Chain[T]{
		validate.String("password", "Password must be at least 8 characters long.", get, pred(validate.MinLen(8))),
		validate.String("password", "Password must be at most 72 bytes long.", get, pred(maxBytes(72))),
		validate.String("password", "Password must contain a number.", get, pred(validate.Matches(reDigit))),
		validate.String("password", "Password must contain an uppercase letter.", get, pred(validate.Matches(reUpper))),
		validate.String("password", "Password must contain a lowercase letter.", get, pred(validate.Matches(reLower))),
		validate.String("password", "Password must contain a special character.", get, pred(validate.Matches(reSpecial))),
	}
}

func identity(p func(string) bool) func(string) bool { return p }

func concat[T any](chains ...validate.Chain[T]) validate.Chain[T] {
	var out validate.Chain[T]
	for _, c := range chains {
		out = append(out, c...)
	}
	return out
}

// RegisterRules 注册校验链，按顺序执行
var RegisterRules = concat(
	validate.Chain[RegisterInput]{{
		Field:   "",
		Message: "All fields are Required",
		Check: func(in *RegisterInput) bool {
			return validate.Required(in.Username) && validate.Required(in.Email) && in.Password != ""
		},
	}},
	usernameRule(func(in *RegisterInput) string { return in.Username }, identity),
	emailRule(func(in *RegisterInput) string { return in.Email }, identity),
	passwordRules(func(in *RegisterInput) string { return in.Password }, identity),
)

// ProfileRules 与注册相同的规则，只校验提供了的字段
var ProfileRules = concat(
	usernameRule(func(in *ProfileInput) string { return in.Username }, validate.Optional),
	emailRule(func(in *ProfileInput) string { return in.Email }, validate.Optional),
	passwordRules(func(in *ProfileInput) string { return in.Password }, validate.Optional),
)

type UserService struct {
	users   domain.UserRepository
	access  *auth.JWTer
	refresh *auth.JWTer
	log     *zap.Logger
	now     func() time.Time
}

func NewUserService(users domain.UserRepository, access, refresh *auth.JWTer, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{users: users, access: access, refresh: refresh, log: log, now: time.Now}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := RegisterRules.Check(&in); err != nil {
		s.log.Warn("register rejected", zap.String("email", in.Email), zap.Error(err))
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, errs.Internal("Error registering user", err)
	}
	if existing != nil {
		s.log.Warn("user already exists", zap.String("email", in.Email))
		return nil, errs.Conflict("Email already used")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, errs.Internal("Error registering user", err)
	}
	now := s.now().UTC()
	u := &domain.User{
		ID:           utils.NewID(),
		Username:     html.EscapeString(in.Username),
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, errs.Conflict("Email already used")
		}
		return nil, errs.Internal("Error registering user", err)
	}
	s.log.Info("user registered", zap.String("userId", u.ID))
	return u, nil
}

// Login 用户不存在和密码错误返回同一条消息
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, errs.Validation("All fields are Required", nil)
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, errs.Internal("Error logging in", err)
	}
	if u == nil {
		s.log.Warn("login for unknown user", zap.String("email", email))
		return nil, errs.Auth("Invalid email or password")
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		s.log.Warn("login with wrong password", zap.String("email", email))
		return nil, errs.Auth("Invalid email or password")
	}

	pair, err := s.issuePair(u.ID)
	if err != nil {
		return nil, errs.Internal("Error logging in", err)
	}
	// 单会话：覆盖之前的 refresh token
	if err := s.users.SetRefreshToken(ctx, u.ID, &pair.RefreshToken); err != nil {
		return nil, errs.Internal("Error logging in", err)
	}
	return &LoginResult{Token: pair.AccessToken, RefreshToken: pair.RefreshToken, User: u}, nil
}

// Refresh 轮换 refresh token；旧令牌立即失效
func (s *UserService) Refresh(ctx context.Context, token string) (*TokenPair, error) {
	if token == "" {
		return nil, errs.Auth("Refresh token is Required")
	}
	claims, err := s.refresh.Parse(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, errs.Auth("Refresh token expired")
		}
		s.log.Warn("unverifiable refresh token", zap.Error(err))
		return nil, errs.Auth("Invalid refresh token")
	}

	pair, err := s.issuePair(claims.UserID)
	if err != nil {
		return nil, errs.Internal("Error refreshing token", err)
	}
	ok, err := s.users.SwapRefreshToken(ctx, claims.UserID, token, pair.RefreshToken)
	if err != nil {
		return nil, errs.Internal("Error refreshing token", err)
	}
	if !ok {
		s.log.Warn("stale refresh token", zap.String("userId", claims.UserID))
		return nil, errs.Auth("Invalid refresh token")
	}
	return pair, nil
}

func (s *UserService) Profile(ctx context.Context, uid string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, errs.Internal("Error fetching profile", err)
	}
	if u == nil {
		return nil, errs.NotFound("User not Found")
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, uid string, in ProfileInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := ProfileRules.Check(&in); err != nil {
		return nil, err
	}

	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, errs.Internal("Error updating profile", err)
	}
	if u == nil {
		s.log.Warn("profile update for missing user", zap.String("userId", uid))
		return nil, errs.NotFound("User not Found")
	}

	if in.Username != "" {
		u.Username = html.EscapeString(in.Username)
	}
	if in.Email != "" && in.Email != u.Email {
		other, err := s.users.FindByEmail(ctx, in.Email)
		if err != nil {
			return nil, errs.Internal("Error updating profile", err)
		}
		if other != nil && other.ID != u.ID {
			return nil, errs.Conflict("Email already used")
		}
		u.Email = in.Email
	}
	if in.Password != "" {
		hash, err := utils.HashPassword(in.Password)
		if err != nil {
			return nil, errs.Internal("Error updating profile", err)
		}
		u.PasswordHash = hash
	}
	u.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, errs.Conflict("Email already used")
		}
		return nil, errs.Internal("Error updating profile", err)
	}
	return u, nil
}

// DeleteProfile 硬删除，任务不级联
func (s *UserService) DeleteProfile(ctx context.Context, uid string) error {
	ok, err := s.users.Delete(ctx, uid)
	if err != nil {
		return errs.Internal("Error deleting profile", err)
	}
	if !ok {
		s.log.Warn("delete for missing user", zap.String("userId", uid))
		return errs.NotFound("User not Found")
	}
	s.log.Info("user deleted", zap.String("userId", uid))
	return nil
}

// Logout 清掉当前会话的 refresh token
func (s *UserService) Logout(ctx context.Context, uid string) error {
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return errs.Internal("Error logging out", err)
	}
	if u == nil {
		return errs.NotFound("User not Found")
	}
	if err := s.users.SetRefreshToken(ctx, uid, nil); err != nil {
		return errs.Internal("Error logging out", err)
	}
	return nil
}

func (s *UserService) issuePair(uid string) (*TokenPair, error) {
	access, err := s.access.Issue(uid)
	if err != nil {
		return nil, err
	}
	refresh, err := s.refresh.Issue(uid)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
