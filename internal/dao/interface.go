package dao

import (
	"context"
	"errors"

	"amity-social/internal/model"
)

// ErrDuplicatePair 同一用户对的关系记录已存在（唯一索引冲突）
var ErrDuplicatePair = errors.New("relationship already exists for pair")

// ErrDuplicateUsername 用户名已被占用
var ErrDuplicateUsername = errors.New("username already taken")

// RelationshipDAO 好友关系数据访问接口
// 读不到记录时返回 (nil, nil)，调用方据此区分"无记录"与存储错误
type RelationshipDAO interface {
	Create(ctx context.Context, friendship *model.Friendship) error
	GetByPair(ctx context.Context, userA, userB int64) (*model.Friendship, error)
	GetByID(ctx context.Context, id int64) (*model.Friendship, error)

	// 条件变更，返回是否命中status=pending/accepted的记录
	UpdateStatusIfPending(ctx context.Context, id int64, status string, actionUserID int64) (bool, error)
	DeleteIfPending(ctx context.Context, id int64) (bool, error)
	DeleteIfAccepted(ctx context.Context, id int64) (bool, error)

	ListAccepted(ctx context.Context, userID int64, page, pageSize int) ([]*model.Friendship, error)
	CountAccepted(ctx context.Context, userID int64) (int64, error)
	ListPending(ctx context.Context, userID int64) ([]*model.Friendship, error)
}

// UserDAO 用户数据访问接口
type UserDAO interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error)
}

// MessageDAO 消息数据访问接口
type MessageDAO interface {
	Insert(ctx context.Context, msg *model.Message) error
	GetByID(ctx context.Context, messageID int64) (*model.Message, error)
	FindBetween(ctx context.Context, userA, userB int64, page, pageSize int) ([]*model.Message, error)
	CountBetween(ctx context.Context, userA, userB int64) (int64, error)
	LastMessageBetween(ctx context.Context, userA, userB int64) (*model.Message, error)

	// 单次批量更新，不做逐条读改写
	MarkReadBulk(ctx context.Context, senderID, recipientID int64) (int64, error)
	CountUnreadForRecipient(ctx context.Context, recipientID int64) (int64, error)
	CountUnreadFrom(ctx context.Context, recipientID, senderID int64) (int64, error)

	DeleteByID(ctx context.Context, messageID int64) error
	DeleteBetween(ctx context.Context, userA, userB int64) (int64, error)
	DistinctCounterparts(ctx context.Context, userID int64) ([]int64, error)

	EnsureIndexes(ctx context.Context) error
}

// SearchDAO 消息搜索索引访问接口
type SearchDAO interface {
	IndexMessage(ctx context.Context, msg *model.Message) error
	DeleteThread(ctx context.Context, pairKey string) error
	SearchMessages(ctx context.Context, userID int64, query string, limit int) ([]*model.Message, error)
}
