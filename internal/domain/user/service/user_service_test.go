package service

import (
	"context"
	"testing"
	"time"

	notificationModel "barter_market/internal/domain/notification/model"
	"barter_market/internal/domain/user/model"
	"barter_market/internal/pkg/config"
	"barter_market/internal/pkg/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	config.GlobalConfig.JWT.Secret = "test-secret-key-for-unit-tests-only------"
	config.GlobalConfig.JWT.Expire = 720
	m.Run()
}

// MockUserRepository is a mock of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByMobile(ctx context.Context, mobile string) (*model.User, error) {
	args := m.Called(ctx, mobile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetList(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]model.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Follow(ctx context.Context, followerID, followeeID string) error {
	args := m.Called(ctx, followerID, followeeID)
	return args.Error(0)
}

func (m *MockUserRepository) Unfollow(ctx context.Context, followerID, followeeID string) error {
	args := m.Called(ctx, followerID, followeeID)
	return args.Error(0)
}

func (m *MockUserRepository) GetFollowers(ctx context.Context, followeeID string, offset, limit int) ([]model.User, int64, error) {
	args := m.Called(ctx, followeeID, offset, limit)
	return args.Get(0).([]model.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	args := m.Called(ctx, followerID, followeeID)
	return args.Bool(0), args.Error(1)
}

// MockOTPService is a mock of OTPService
type MockOTPService struct {
	mock.Mock
}

func (m *MockOTPService) Send(ctx context.Context, mobile string) (string, error) {
	args := m.Called(ctx, mobile)
	return args.String(0), args.Error(1)
}

func (m *MockOTPService) Verify(ctx context.Context, mobile, code string) bool {
	args := m.Called(ctx, mobile, code)
	return args.Bool(0)
}

type recordingDispatcher struct {
	tasks []worker.NotificationTask
}

func (d *recordingDispatcher) Dispatch(task worker.NotificationTask) {
	d.tasks = append(d.tasks, task)
}

func createTestUser(id, mobile string) *model.User {
	user := &model.User{
		Mobile:   mobile,
		Nickname: "TestUser",
		Role:     model.RoleUser,
		Status:   model.StatusNormal,
	}
	user.ID = id
	return user
}

func TestLoginOrRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("New user registration success", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockOTP := new(MockOTPService)
		svc := NewUserService(mockRepo, mockOTP, nil)

		mobile := "13800138000"
		code := "123456"

		mockOTP.On("Verify", ctx, mobile, code).Return(true)
		mockRepo.On("GetByMobile", ctx, mobile).Return(nil, gorm.ErrRecordNotFound)
		mockRepo.On("Create", ctx, mock.AnythingOfType("*model.User")).Return(nil)
		mockRepo.On("Update", ctx, mock.AnythingOfType("*model.User")).Return(nil)

		token, user, err := svc.LoginOrRegister(ctx, mobile, code)

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "用户8000", user.Nickname)
		mockOTP.AssertExpectations(t)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Existing user login success", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockOTP := new(MockOTPService)
		svc := NewUserService(mockRepo, mockOTP, nil)

		mobile := "13800138001"
		user := createTestUser("existing-user-id", mobile)

		mockOTP.On("Verify", ctx, mobile, "123456").Return(true)
		mockRepo.On("GetByMobile", ctx, mobile).Return(user, nil)
		mockRepo.On("Update", ctx, mock.AnythingOfType("*model.User")).Return(nil)

		token, _, err := svc.LoginOrRegister(ctx, mobile, "123456")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Invalid verification code", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockOTP := new(MockOTPService)
		svc := NewUserService(mockRepo, mockOTP, nil)

		mockOTP.On("Verify", ctx, "13800138002", "wrongcode").Return(false)

		token, _, err := svc.LoginOrRegister(ctx, "13800138002", "wrongcode")

		assert.Error(t, err)
		assert.Empty(t, token)
		assert.Contains(t, err.Error(), "invalid verification code")
		mockRepo.AssertNotCalled(t, "GetByMobile", mock.Anything, mock.Anything)
	})

	t.Run("Banned account rejected", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockOTP := new(MockOTPService)
		svc := NewUserService(mockRepo, mockOTP, nil)

		until := time.Now().Add(24 * time.Hour)
		user := createTestUser("banned-user", "13800138003")
		user.Status = model.StatusBanned
		user.BannedUntil = &until

		mockOTP.On("Verify", ctx, user.Mobile, "123456").Return(true)
		mockRepo.On("GetByMobile", ctx, user.Mobile).Return(user, nil)

		_, _, err := svc.LoginOrRegister(ctx, user.Mobile, "123456")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "banned")
	})

	t.Run("Expired ban lifts automatically", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockOTP := new(MockOTPService)
		svc := NewUserService(mockRepo, mockOTP, nil)

		until := time.Now().Add(-time.Hour)
		user := createTestUser("unbanned-user", "13800138004")
		user.Status = model.StatusBanned
		user.BannedUntil = &until

		mockOTP.On("Verify", ctx, user.Mobile, "123456").Return(true)
		mockRepo.On("GetByMobile", ctx, user.Mobile).Return(user, nil)
		mockRepo.On("Update", ctx, mock.AnythingOfType("*model.User")).Return(nil)

		_, loggedIn, err := svc.LoginOrRegister(ctx, user.Mobile, "123456")

		assert.NoError(t, err)
		assert.Equal(t, model.StatusNormal, loggedIn.Status)
		assert.Nil(t, loggedIn.BannedUntil)
	})
}

func TestBecomeSeller(t *testing.T) {
	ctx := context.Background()

	t.Run("Store name grants seller role", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		svc := NewUserService(mockRepo, nil, nil)

		user := createTestUser("user-1", "13800138000")
		mockRepo.On("GetByID", ctx, "user-1").Return(user, nil)
		mockRepo.On("Update", ctx, mock.AnythingOfType("*model.User")).Return(nil)

		updated, err := svc.BecomeSeller(ctx, "user-1", BecomeSellerInput{StoreName: "阿明手作"})

		assert.NoError(t, err)
		assert.True(t, updated.IsSeller())
		assert.Equal(t, "阿明手作", updated.StoreName)
	})
}

func TestFollow(t *testing.T) {
	ctx := context.Background()

	t.Run("Follow notifies followee", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		dispatcher := &recordingDispatcher{}
		svc := NewUserService(mockRepo, nil, dispatcher)

		followee := createTestUser("seller-1", "13800138001")
		follower := createTestUser("buyer-1", "13800138002")
		follower.Nickname = "小王"

		mockRepo.On("GetByID", ctx, "seller-1").Return(followee, nil)
		mockRepo.On("GetByID", ctx, "buyer-1").Return(follower, nil)
		mockRepo.On("IsFollowing", ctx, "buyer-1", "seller-1").Return(false, nil)
		mockRepo.On("Follow", ctx, "buyer-1", "seller-1").Return(nil)

		err := svc.Follow(ctx, "buyer-1", "seller-1")

		assert.NoError(t, err)
		assert.Len(t, dispatcher.tasks, 1)
		assert.Equal(t, "seller-1", dispatcher.tasks[0].RecipientID)
		assert.Equal(t, notificationModel.TypeNewFollower, dispatcher.tasks[0].Type)
		assert.Contains(t, dispatcher.tasks[0].Message, "小王")
	})

	t.Run("Duplicate follow is a no-op", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		dispatcher := &recordingDispatcher{}
		svc := NewUserService(mockRepo, nil, dispatcher)

		followee := createTestUser("seller-1", "13800138001")
		mockRepo.On("GetByID", ctx, "seller-1").Return(followee, nil)
		mockRepo.On("IsFollowing", ctx, "buyer-1", "seller-1").Return(true, nil)

		err := svc.Follow(ctx, "buyer-1", "seller-1")

		assert.NoError(t, err)
		mockRepo.AssertNotCalled(t, "Follow", mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, dispatcher.tasks)
	})

	t.Run("Cannot follow yourself", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		svc := NewUserService(mockRepo, nil, nil)

		err := svc.Follow(ctx, "user-1", "user-1")

		assert.Error(t, err)
		mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Marks account deleted instead of removing", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		svc := NewUserService(mockRepo, nil, nil)

		user := createTestUser("user-1", "13800138000")
		mockRepo.On("GetByID", ctx, "user-1").Return(user, nil)
		mockRepo.On("Update", ctx, mock.MatchedBy(func(u *model.User) bool {
			return u.Status == model.StatusDeleted
		})).Return(nil)

		err := svc.DeleteUser(ctx, "user-1")

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}
