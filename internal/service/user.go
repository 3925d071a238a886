package service

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"amity-social/internal/dao"
	"amity-social/internal/model"
	"amity-social/pkg/auth"
	"amity-social/pkg/logger"
	"amity-social/pkg/snowflake"
	"amity-social/pkg/telemetry"
)

// UserService 用户目录服务，注册即颁发访问令牌
type UserService struct {
	userDAO dao.UserDAO
	jwt     *auth.JWTConfig
	logger  logger.Logger
}

// NewUserService 创建用户服务实例
func NewUserService(userDAO dao.UserDAO, jwtConfig *auth.JWTConfig, log logger.Logger) *UserService {
	return &UserService{
		userDAO: userDAO,
		jwt:     jwtConfig,
		logger:  log,
	}
}

// Register 注册用户并返回访问令牌
func (s *UserService) Register(ctx context.Context, username, nickname, avatar string) (*model.User, string, error) {
	ctx, span := telemetry.StartSpan(ctx, "user.service.Register")
	defer span.End()

	username = strings.TrimSpace(username)
	span.SetAttributes(attribute.String("user.username", username))

	if username == "" || len(username) > 64 {
		span.SetStatus(codes.Error, "invalid username")
		return nil, "", ErrInvalidContent
	}
	if nickname == "" {
		nickname = username
	}

	user := &model.User{
		ID:       snowflake.GenerateID(),
		Username: username,
		Nickname: nickname,
		Avatar:   avatar,
	}

	if err := s.userDAO.Create(ctx, user); err != nil {
		if err == dao.ErrDuplicateUsername {
			span.SetStatus(codes.Error, "username taken")
			return nil, "", ErrUsernameTaken
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create user")
		return nil, "", fmt.Errorf("创建用户失败: %v", err)
	}

	token, err := s.jwt.GenerateToken(user.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to issue token")
		return nil, "", fmt.Errorf("签发令牌失败: %v", err)
	}

	s.logger.Info(ctx, "User registered successfully",
		logger.F("userID", user.ID),
		logger.F("username", username))

	span.SetStatus(codes.Ok, "user registered successfully")
	return user, token, nil
}

// GetUser 查询用户资料
func (s *UserService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "user.service.GetUser")
	defer span.End()

	span.SetAttributes(attribute.Int64("user.id", userID))

	user, err := s.userDAO.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get user")
		return nil, fmt.Errorf("查询用户失败: %v", err)
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return nil, ErrUserNotFound
	}

	span.SetStatus(codes.Ok, "user fetched")
	return user, nil
}
