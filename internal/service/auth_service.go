package service

import (
	"context"
	"errors"
	"strings"

	"github.com/quillpost/internal/dao"
	"github.com/quillpost/internal/db"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials 表示用户名或密码错误。
var ErrInvalidCredentials = errors.New("invalid username or password")

// AuthService 校验登录凭据，会话由 handler 层维护。
type AuthService struct {
	users dao.UserDAO
}

// NewAuthService 创建 AuthService。
func NewAuthService(users dao.UserDAO) *AuthService {
	return &AuthService{users: users}
}

// Authenticate 校验用户名与 bcrypt 密码，成功时返回用户。
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*db.User, error) {
	const op = "auth.authenticate"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, &Error{Kind: KindValidation, Op: op, Message: "username and password are required"}
	}

	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, internalError(op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
