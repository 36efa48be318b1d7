// Package auth 提供账号注册、登录与会员等级维护
package auth

import (
	"context"
	stderrors "errors"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/dumeirei/funzone-backend/internal/common/crypto"
	"github.com/dumeirei/funzone-backend/internal/common/errors"
	"github.com/dumeirei/funzone-backend/internal/common/jwt"
	"github.com/dumeirei/funzone-backend/internal/models"
	"github.com/dumeirei/funzone-backend/internal/repository"
	"github.com/dumeirei/funzone-backend/internal/service/promotion"
)

var phonePattern = regexp.MustCompile(`^[0-9()+\-\s]{8,20}$`)

// AuthService 认证服务
type AuthService struct {
	userRepo   *repository.UserRepository
	jwtManager *jwt.Manager
	hasher     *crypto.PasswordHasher
}

// NewAuthService 创建认证服务
func NewAuthService(
	userRepo *repository.UserRepository,
	jwtManager *jwt.Manager,
	hasher *crypto.PasswordHasher,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		hasher:     hasher,
	}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username        string  `json:"username" binding:"required,min=3,max=50"`
	Password        string  `json:"password" binding:"required,min=6,max=72"`
	ConfirmPassword *string `json:"confirm_password"`
	FullName        string  `json:"full_name" binding:"max=100"`
	Phone           string  `json:"phone" binding:"required"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	User  *UserInfo  `json:"user"`
	Token *jwt.Token `json:"token"`
}

// UserInfo 用户信息
type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Phone    string `json:"phone,omitempty"`
	Tier     string `json:"tier"`
	Points   int64  `json:"points"`
}

// Register 注册顾客账号
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*UserInfo, error) {
	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)
	phone := strings.TrimSpace(req.Phone)

	if len(username) < 3 {
		return nil, errors.ErrInvalidParams.WithMessage("用户名至少 3 个字符")
	}
	if len(password) < 6 {
		return nil, errors.ErrInvalidParams.WithMessage("密码至少 6 位")
	}
	if req.ConfirmPassword != nil && *req.ConfirmPassword != password {
		return nil, errors.ErrInvalidParams.WithMessage("两次输入的密码不一致")
	}
	if !phonePattern.MatchString(phone) {
		return nil, errors.ErrInvalidParams.WithMessage("手机号格式错误")
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if exists {
		return nil, errors.ErrUserExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, errors.ErrInvalidParams.WithError(err)
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		fullName = username
	}
	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		FullName:     fullName,
		Phone:        &phone,
		Role:         models.UserRoleCustomer,
		Tier:         promotion.TierStandard.String(),
		Status:       models.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return toUserInfo(user), nil
}

// Login 用户名密码登录
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, errors.ErrPasswordError
	}
	if !user.IsActive() {
		return nil, errors.ErrAccountDisabled
	}

	token, err := s.jwtManager.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	return &LoginResponse{User: toUserInfo(user), Token: token}, nil
}

// Me 当前用户信息
func (s *AuthService) Me(ctx context.Context, userID int64) (*UserInfo, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toUserInfo(user), nil
}

// SetTier 后台调整会员等级，等级名称会被规范化
func (s *AuthService) SetTier(ctx context.Context, userID int64, tier string) (*UserInfo, error) {
	parsed, err := promotion.ParseTier(tier)
	if err != nil || parsed == promotion.TierNone {
		return nil, errors.ErrInvalidTier
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateTier(ctx, userID, parsed.String()); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	user.Tier = parsed.String()
	return toUserInfo(user), nil
}

func (s *AuthService) getUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return user, nil
}

func toUserInfo(user *models.User) *UserInfo {
	info := &UserInfo{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Role:     user.Role,
		Tier:     user.Tier,
		Points:   user.Points,
	}
	if user.Phone != nil {
		info.Phone = crypto.MaskPhone(*user.Phone)
	}
	return info
}
