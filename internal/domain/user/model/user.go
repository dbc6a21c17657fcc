package model

import (
	"time"

	baseModel "barter_market/pkg/model"
)

// 用户角色
const (
	RoleUser  = 1
	RoleAdmin = 9
)

// 用户状态
const (
	StatusNormal  = 1
	StatusBanned  = 2
	StatusDeleted = 3
)

// User 用户，买家卖家共用一张表
// 填写 StoreName 后即具备卖家身份
type User struct {
	baseModel.BaseModel
	Mobile    string `gorm:"unique;not null" json:"mobile"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatarUrl"`
	Email     string `json:"email,omitempty"`
	Bio       string `json:"bio,omitempty"`

	// 卖家资料
	StoreName        string `json:"storeName,omitempty"`
	StoreDescription string `json:"storeDescription,omitempty"`

	Role   int `gorm:"default:1" json:"role"`
	Status int `gorm:"default:1" json:"status"`

	BannedUntil *time.Time `json:"bannedUntil,omitempty"`

	Token         string     `gorm:"index" json:"-"`
	TokenExpireAt *time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}

// IsSeller 是否具备卖家身份
func (u *User) IsSeller() bool {
	return u.StoreName != ""
}

// Follower 关注关系，follower 关注 followee
type Follower struct {
	ID         string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	FollowerID string    `gorm:"type:uuid;not null;uniqueIndex:idx_follower_followee" json:"followerId"`
	FolloweeID string    `gorm:"type:uuid;not null;uniqueIndex:idx_follower_followee" json:"followeeId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Follower) TableName() string {
	return "followers"
}
