package model

import (
	"fmt"
	"time"
)

// User 用户
type User struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"uniqueIndex;size:64;not null"`
	Nickname  string    `json:"nickname" gorm:"size:64"`
	Avatar    string    `json:"avatar" gorm:"size:256"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Friendship 好友关系记录
// 每个无序用户对最多一条记录，user_low < user_high 为规范化存储，
// 唯一索引在存储层消灭并发插入竞态
type Friendship struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	UserLow      int64     `json:"user_low" gorm:"uniqueIndex:idx_friendships_pair;not null"`
	UserHigh     int64     `json:"user_high" gorm:"uniqueIndex:idx_friendships_pair;not null"`
	ActionUserID int64     `json:"action_user_id" gorm:"not null"`
	Status       string    `json:"status" gorm:"size:16;not null;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Friendship) TableName() string {
	return "friendships"
}

// Involves 判断用户是否为关系一方
func (f *Friendship) Involves(userID int64) bool {
	return f.UserLow == userID || f.UserHigh == userID
}

// OtherSide 返回关系中的另一方
func (f *Friendship) OtherSide(userID int64) int64 {
	if f.UserLow == userID {
		return f.UserHigh
	}
	return f.UserLow
}

// Message 单聊消息，存MongoDB
type Message struct {
	MessageID   int64     `json:"message_id" bson:"message_id"`
	SenderID    int64     `json:"sender_id" bson:"sender_id"`
	RecipientID int64     `json:"recipient_id" bson:"recipient_id"`
	PairKey     string    `json:"-" bson:"pair_key"`
	Content     string    `json:"content" bson:"content"`
	MediaType   string    `json:"media_type" bson:"media_type"`
	MediaURL    string    `json:"media_url,omitempty" bson:"media_url,omitempty"`
	IsRead      bool      `json:"is_read" bson:"is_read"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// ConversationSummary 会话摘要，按需派生不落库
type ConversationSummary struct {
	Counterpart *User    `json:"counterpart"`
	LastMessage *Message `json:"last_message"`
	UnreadCount int64    `json:"unread_count"`
}

// FriendInfo 好友列表项
type FriendInfo struct {
	FriendshipID int64     `json:"friendship_id"`
	User         *User     `json:"user"`
	Since        time.Time `json:"since"`
}

// RequestInfo 好友申请列表项
type RequestInfo struct {
	ID         int64     `json:"id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	IsIncoming bool      `json:"is_incoming"`
	User       *User     `json:"user"`
}

// CanonicalPair 把用户对规范化为 (low, high)
func CanonicalPair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// PairKey 用户对的规范化键，"low:high"
func PairKey(a, b int64) string {
	low, high := CanonicalPair(a, b)
	return fmt.Sprintf("%d:%d", low, high)
}

// FriendSetKey 好友集合投影的Redis键
func FriendSetKey(userID int64) string {
	return fmt.Sprintf("friends:%d", userID)
}
