package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"amity-social/pkg/kafka"
	"amity-social/pkg/logger"
)

// FriendEvent 好友关系变更事件，推送层按主题订阅
type FriendEvent struct {
	FriendshipID int64 `json:"friendship_id"`
	UserID       int64 `json:"user_id"`
	FriendID     int64 `json:"friend_id"`
	ActionUserID int64 `json:"action_user_id"`
	Timestamp    int64 `json:"timestamp"`
}

// MessageEvent 消息事件
type MessageEvent struct {
	MessageID   int64  `json:"message_id"`
	SenderID    int64  `json:"sender_id"`
	RecipientID int64  `json:"recipient_id"`
	PairKey     string `json:"pair_key"`
	Timestamp   int64  `json:"timestamp"`
}

// publishEvent 发布事件到Kafka，发布失败只记日志不影响主流程
func publishEvent(ctx context.Context, producer *kafka.Producer, log logger.Logger, topic string, key int64, event interface{}) {
	if producer == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error(ctx, "Failed to marshal event",
			logger.F("topic", topic),
			logger.F("error", err.Error()))
		return
	}

	if err := producer.SendMessage(topic, []byte(strconv.FormatInt(key, 10)), payload); err != nil {
		log.Error(ctx, "Failed to publish event",
			logger.F("topic", topic),
			logger.F("error", err.Error()))
	}
}

func nowUnix() int64 {
	return time.Now().Unix()
}
