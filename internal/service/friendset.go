package service

import (
	"context"
	"strconv"

	"amity-social/internal/model"
	"amity-social/pkg/redis"
)

// FriendSet 好友集合投影
// 加速isAuthorizedToMessage的快路径，PostgreSQL记录始终是权威数据；
// Add/Remove幂等，事件重复投递无害。
// Add丢失只会走回源并修复，Remove丢失会造成越权放行，
// 解除好友时必须在删权威记录前清投影且失败即中止
type FriendSet interface {
	Add(ctx context.Context, userID, friendID int64) error
	Remove(ctx context.Context, userID, friendID int64) error
	Contains(ctx context.Context, userID, friendID int64) (bool, error)
	Members(ctx context.Context, userID int64) ([]int64, error)
}

// redisFriendSet 基于Redis set的好友集合投影
type redisFriendSet struct {
	redis *redis.RedisClient
}

// NewRedisFriendSet 创建Redis好友集合投影
func NewRedisFriendSet(client *redis.RedisClient) FriendSet {
	return &redisFriendSet{redis: client}
}

// Add 双向加入好友集合，SADD天然幂等
func (s *redisFriendSet) Add(ctx context.Context, userID, friendID int64) error {
	if err := s.redis.SAdd(ctx, model.FriendSetKey(userID), friendID); err != nil {
		return err
	}
	return s.redis.SAdd(ctx, model.FriendSetKey(friendID), userID)
}

// Remove 双向移出好友集合，SREM天然幂等
func (s *redisFriendSet) Remove(ctx context.Context, userID, friendID int64) error {
	if err := s.redis.SRem(ctx, model.FriendSetKey(userID), friendID); err != nil {
		return err
	}
	return s.redis.SRem(ctx, model.FriendSetKey(friendID), userID)
}

// Contains 查询好友集合成员关系
func (s *redisFriendSet) Contains(ctx context.Context, userID, friendID int64) (bool, error) {
	return s.redis.SIsMember(ctx, model.FriendSetKey(userID), friendID)
}

// Members 获取好友集合全部成员
func (s *redisFriendSet) Members(ctx context.Context, userID int64) ([]int64, error) {
	raw, err := s.redis.SMembers(ctx, model.FriendSetKey(userID))
	if err != nil {
		return nil, err
	}

	members := make([]int64, 0, len(raw))
	for _, v := range raw {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		members = append(members, id)
	}
	return members, nil
}
