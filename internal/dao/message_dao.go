package dao

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"amity-social/internal/model"
)

const messageCollection = "messages"

// messageDAO 消息数据访问对象
type messageDAO struct {
	db *mongo.Database
}

// NewMessageDAO 创建消息DAO实例
func NewMessageDAO(db *mongo.Database) MessageDAO {
	return &messageDAO{db: db}
}

func (d *messageDAO) collection() *mongo.Collection {
	return d.db.Collection(messageCollection)
}

// EnsureIndexes 创建消息集合所需索引
func (d *messageDAO) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "message_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// 会话线程查询：按用户对取最近消息
			Keys: bson.D{
				{Key: "pair_key", Value: 1},
				{Key: "created_at", Value: -1},
				{Key: "message_id", Value: -1},
			},
		},
		{
			// 未读统计：recipient + is_read
			Keys: bson.D{
				{Key: "recipient_id", Value: 1},
				{Key: "is_read", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "sender_id", Value: 1}},
		},
	}

	_, err := d.collection().Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create message indexes: %v", err)
	}
	return nil
}

// Insert 保存消息
func (d *messageDAO) Insert(ctx context.Context, msg *model.Message) error {
	if _, err := d.collection().InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to insert message: %v", err)
	}
	return nil
}

// GetByID 按消息ID查询，未命中返回 (nil, nil)
func (d *messageDAO) GetByID(ctx context.Context, messageID int64) (*model.Message, error) {
	var msg model.Message
	err := d.collection().FindOne(ctx, bson.M{"message_id": messageID}).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %v", err)
	}
	return &msg, nil
}

// FindBetween 获取两人之间的消息，created_at倒序，message_id倒序决并列
func (d *messageDAO) FindBetween(ctx context.Context, userA, userB int64, page, pageSize int) ([]*model.Message, error) {
	filter := bson.M{"pair_key": model.PairKey(userA, userB)}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "message_id", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := d.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find messages: %v", err)
	}
	defer cursor.Close(ctx)

	var messages []*model.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %v", err)
	}
	return messages, nil
}

// CountBetween 统计两人之间的消息总数
func (d *messageDAO) CountBetween(ctx context.Context, userA, userB int64) (int64, error) {
	count, err := d.collection().CountDocuments(ctx, bson.M{"pair_key": model.PairKey(userA, userB)})
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %v", err)
	}
	return count, nil
}

// LastMessageBetween 获取两人之间最新的一条消息，未命中返回 (nil, nil)
func (d *messageDAO) LastMessageBetween(ctx context.Context, userA, userB int64) (*model.Message, error) {
	filter := bson.M{"pair_key": model.PairKey(userA, userB)}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "message_id", Value: -1}})

	var msg model.Message
	err := d.collection().FindOne(ctx, filter, opts).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last message: %v", err)
	}
	return &msg, nil
}

// MarkReadBulk 把sender发给recipient的未读消息一次性置为已读
// 单条UpdateMany保证原子性，返回实际更新条数
func (d *messageDAO) MarkReadBulk(ctx context.Context, senderID, recipientID int64) (int64, error) {
	filter := bson.M{
		"sender_id":    senderID,
		"recipient_id": recipientID,
		"is_read":      false,
	}
	update := bson.M{"$set": bson.M{"is_read": true}}

	result, err := d.collection().UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %v", err)
	}
	return result.ModifiedCount, nil
}

// CountUnreadForRecipient 统计用户的全部未读消息数
func (d *messageDAO) CountUnreadForRecipient(ctx context.Context, recipientID int64) (int64, error) {
	filter := bson.M{"recipient_id": recipientID, "is_read": false}
	count, err := d.collection().CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %v", err)
	}
	return count, nil
}

// CountUnreadFrom 统计来自指定发送者的未读消息数
func (d *messageDAO) CountUnreadFrom(ctx context.Context, recipientID, senderID int64) (int64, error) {
	filter := bson.M{
		"recipient_id": recipientID,
		"sender_id":    senderID,
		"is_read":      false,
	}
	count, err := d.collection().CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages from sender: %v", err)
	}
	return count, nil
}

// DeleteByID 删除单条消息
func (d *messageDAO) DeleteByID(ctx context.Context, messageID int64) error {
	if _, err := d.collection().DeleteOne(ctx, bson.M{"message_id": messageID}); err != nil {
		return fmt.Errorf("failed to delete message: %v", err)
	}
	return nil
}

// DeleteBetween 删除两人之间的全部消息（双向）
func (d *messageDAO) DeleteBetween(ctx context.Context, userA, userB int64) (int64, error) {
	result, err := d.collection().DeleteMany(ctx, bson.M{"pair_key": model.PairKey(userA, userB)})
	if err != nil {
		return 0, fmt.Errorf("failed to delete conversation: %v", err)
	}
	return result.DeletedCount, nil
}

// DistinctCounterparts 获取用户有过消息往来的对端集合
func (d *messageDAO) DistinctCounterparts(ctx context.Context, userID int64) ([]int64, error) {
	recipients, err := d.collection().Distinct(ctx, "recipient_id", bson.M{"sender_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to get distinct recipients: %v", err)
	}
	senders, err := d.collection().Distinct(ctx, "sender_id", bson.M{"recipient_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to get distinct senders: %v", err)
	}

	seen := make(map[int64]struct{}, len(recipients)+len(senders))
	var counterparts []int64
	for _, raw := range append(recipients, senders...) {
		id, ok := toInt64(raw)
		if !ok || id == userID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		counterparts = append(counterparts, id)
	}
	return counterparts, nil
}

// toInt64 Distinct结果按驱动可能是int32/int64
func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	}
	return 0, false
}
