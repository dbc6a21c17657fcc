package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	notificationModel "barter_market/internal/domain/notification/model"
	"barter_market/internal/domain/user/model"
	"barter_market/internal/domain/user/repository"
	"barter_market/internal/pkg/otp"
	"barter_market/internal/pkg/worker"
	"barter_market/pkg/utils"

	"gorm.io/gorm"
)

// UpdateProfileInput 资料更新参数，零值字段不更新
type UpdateProfileInput struct {
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatarUrl"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
}

// BecomeSellerInput 开店参数
type BecomeSellerInput struct {
	StoreName        string `json:"storeName" binding:"required"`
	StoreDescription string `json:"storeDescription"`
}

// UserService 用户服务接口
type UserService interface {
	LoginOrRegister(ctx context.Context, mobile, code string) (string, *model.User, error)
	SendOTP(ctx context.Context, mobile string) error
	GetUsers(ctx context.Context, page, limit int) ([]model.User, int64, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*model.User, error)
	BecomeSeller(ctx context.Context, id string, input BecomeSellerInput) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error

	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	GetFollowers(ctx context.Context, followeeID string, page, limit int) ([]model.User, int64, error)
}

type userService struct {
	repo       repository.UserRepository
	otp        otp.OTPService
	dispatcher worker.Dispatcher
}

// NewUserService 创建用户服务
func NewUserService(repo repository.UserRepository, otpService otp.OTPService, dispatcher worker.Dispatcher) UserService {
	return &userService{repo: repo, otp: otpService, dispatcher: dispatcher}
}

// LoginOrRegister 验证码登录，新手机号自动注册
func (s *userService) LoginOrRegister(ctx context.Context, mobile, code string) (string, *model.User, error) {
	if !s.otp.Verify(ctx, mobile, code) {
		return "", nil, errors.New("invalid verification code")
	}

	user, err := s.repo.GetByMobile(ctx, mobile)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, err
		}
		user = &model.User{
			Mobile:   mobile,
			Nickname: "用户" + mobile[len(mobile)-4:],
			Role:     model.RoleUser,
			Status:   model.StatusNormal,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return "", nil, err
		}
	}

	switch user.Status {
	case model.StatusBanned:
		// 封禁到期自动解封
		if user.BannedUntil != nil && time.Now().After(*user.BannedUntil) {
			user.Status = model.StatusNormal
			user.BannedUntil = nil
			if err := s.repo.Update(ctx, user); err != nil {
				return "", nil, err
			}
		} else {
			return "", nil, errors.New("account is banned")
		}
	case model.StatusDeleted:
		return "", nil, errors.New("account has been deleted")
	}

	token, tokenExpireAt, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}

	user.Token = token
	user.TokenExpireAt = tokenExpireAt
	if err := s.repo.Update(ctx, user); err != nil {
		return "", nil, err
	}

	return token, user, nil
}

func (s *userService) SendOTP(ctx context.Context, mobile string) error {
	_, err := s.otp.Send(ctx, mobile)
	return err
}

func (s *userService) GetUsers(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	return s.repo.GetList(ctx, (page-1)*limit, limit)
}

func (s *userService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *userService) UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Nickname != "" {
		user.Nickname = input.Nickname
	}
	if input.AvatarURL != "" {
		user.AvatarURL = input.AvatarURL
	}
	if input.Email != "" {
		user.Email = input.Email
	}
	if input.Bio != "" {
		user.Bio = input.Bio
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BecomeSeller 填写店铺信息后即可挂出商品
func (s *userService) BecomeSeller(ctx context.Context, id string, input BecomeSellerInput) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.StoreName = input.StoreName
	user.StoreDescription = input.StoreDescription

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser 注销账号，标记删除保留数据
func (s *userService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	user.Status = model.StatusDeleted
	return s.repo.Update(ctx, user)
}

// Follow 关注卖家，对方会收到通知
func (s *userService) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return errors.New("cannot follow yourself")
	}

	followee, err := s.repo.GetByID(ctx, followeeID)
	if err != nil {
		return err
	}

	already, err := s.repo.IsFollowing(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	if err := s.repo.Follow(ctx, followerID, followeeID); err != nil {
		return err
	}

	follower, err := s.repo.GetByID(ctx, followerID)
	if err == nil && s.dispatcher != nil {
		s.dispatcher.Dispatch(worker.NotificationTask{
			RecipientID: followee.ID,
			Type:        notificationModel.TypeNewFollower,
			Title:       "新粉丝",
			Message:     fmt.Sprintf("%s 关注了你", follower.Nickname),
			Payload:     map[string]string{"followerId": follower.ID},
		})
	}
	return nil
}

func (s *userService) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return s.repo.Unfollow(ctx, followerID, followeeID)
}

func (s *userService) GetFollowers(ctx context.Context, followeeID string, page, limit int) ([]model.User, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	return s.repo.GetFollowers(ctx, followeeID, (page-1)*limit, limit)
}
