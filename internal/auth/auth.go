package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"identidraw-be/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 用户档案的兜底 TTL（30 天），每次访问刷新。
// 档案的长期持久化不在本服务范围内。
const USER_TTL_SECONDS = 30 * 24 * 3600

var (
	ErrInvalidToken     = errors.New("无效的身份令牌")
	ErrUsernameTaken    = errors.New("用户名已被占用")
	ErrNotRegistered    = errors.New("用户尚未注册")
	ErrUsernameRequired = errors.New("用户名不能为空")
)

// TokenVerifier 抽象外部的身份提供方：校验不透明令牌，
// 返回跨连接稳定的 subject。
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// StaticVerifier 把令牌本身当作 subject，供开发环境与测试使用。
type StaticVerifier struct{}

func (StaticVerifier) Verify(_ context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}

	return token, nil
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// UserService 基于共享存储维护用户档案，
// 保证 subject 到用户的稳定映射与用户名唯一。
type UserService struct {
	verifier TokenVerifier
	store    store.Store
}

func NewUserService(verifier TokenVerifier, st store.Store) *UserService {
	return &UserService{
		verifier: verifier,
		store:    st,
	}
}

func subjectKey(subject string) string {
	return "user:subject:" + subject
}

func usernameKey(username string) string {
	return "user:name:" + strings.ToLower(username)
}

// Register 校验令牌并注册用户。同一 subject 重复注册时返回已有档案；
// 用户名被其他人占用时拒绝。
func (us *UserService) Register(ctx context.Context, token, username string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}

	subject, err := us.verifier.Verify(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if existing, err := us.getBySubject(ctx, subject); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	taken, err := us.store.Exists(ctx, usernameKey(username))
	if err != nil {
		return nil, fmt.Errorf("检查用户名占用失败: %w", err)
	}
	if taken == 1 {
		return nil, ErrUsernameTaken
	}

	user := &User{
		ID:       uuid.New().String(),
		Username: username,
	}

	data, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("序列化用户档案失败: %w", err)
	}

	if err := us.store.Setex(ctx, subjectKey(subject), USER_TTL_SECONDS, string(data)); err != nil {
		return nil, fmt.Errorf("写入用户档案失败: %w", err)
	}

	// 占位键保证用户名唯一
	if err := us.store.Setex(ctx, usernameKey(username), USER_TTL_SECONDS, subject); err != nil {
		return nil, fmt.Errorf("写入用户名占位失败: %w", err)
	}

	zap.S().Infof("用户 %s 注册成功", username)

	return user, nil
}

// Lookup 在连接建立时按令牌找回用户，未注册时返回 ErrNotRegistered。
func (us *UserService) Lookup(ctx context.Context, token string) (*User, error) {
	subject, err := us.verifier.Verify(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := us.getBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotRegistered
	}

	// 活跃用户的档案 TTL 顺带刷新
	data, err := json.Marshal(user)
	if err == nil {
		if err := us.store.Setex(ctx, subjectKey(subject), USER_TTL_SECONDS, string(data)); err != nil {
			zap.L().Warn("刷新用户档案 TTL 失败", zap.Error(err))
		}
		if err := us.store.Setex(ctx, usernameKey(user.Username), USER_TTL_SECONDS, subject); err != nil {
			zap.L().Warn("刷新用户名占位 TTL 失败", zap.Error(err))
		}
	}

	return user, nil
}

func (us *UserService) getBySubject(ctx context.Context, subject string) (*User, error) {
	data, err := us.store.Get(ctx, subjectKey(subject))
	if err != nil {
		return nil, fmt.Errorf("读取用户档案失败: %w", err)
	}
	if data == "" {
		return nil, nil
	}

	var user User

	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("解析用户档案失败: %w", err)
	}

	return &user, nil
}
