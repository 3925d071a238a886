package consumer

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"

	"amity-social/internal/dao"
	"amity-social/internal/model"
	"amity-social/pkg/kafka"
	"amity-social/pkg/logger"
)

// IndexConsumer 搜索索引消费者
// 消费message.sent事件，把消息补写进Elasticsearch索引。
// 发送链路里的同步索引写失败时，这条异步通道兜底
type IndexConsumer struct {
	messageDAO dao.MessageDAO
	searchDAO  dao.SearchDAO
	consumer   *kafka.Consumer
	logger     logger.Logger
}

// indexEvent message.sent事件载荷
type indexEvent struct {
	MessageID   int64  `json:"message_id"`
	SenderID    int64  `json:"sender_id"`
	RecipientID int64  `json:"recipient_id"`
	PairKey     string `json:"pair_key"`
	Timestamp   int64  `json:"timestamp"`
}

// NewIndexConsumer 创建搜索索引消费者
func NewIndexConsumer(messageDAO dao.MessageDAO, searchDAO dao.SearchDAO, log logger.Logger) *IndexConsumer {
	return &IndexConsumer{
		messageDAO: messageDAO,
		searchDAO:  searchDAO,
		logger:     log,
	}
}

// Start 启动消费者，阻塞直到ctx取消
func (c *IndexConsumer) Start(ctx context.Context, brokers []string) error {
	cfg := kafka.KafkaConfig{
		Brokers: brokers,
		GroupID: "message-index-group",
		Topics:  []string{model.TopicMessageSent},
	}

	consumer, err := kafka.InitConsumer(cfg, c)
	if err != nil {
		return err
	}
	c.consumer = consumer

	c.logger.Info(ctx, "Index consumer started",
		logger.F("topic", model.TopicMessageSent),
		logger.F("groupID", "message-index-group"))

	return c.consumer.StartConsuming(ctx)
}

// Stop 关闭消费组
func (c *IndexConsumer) Stop() error {
	if c.consumer == nil {
		return nil
	}
	return c.consumer.Close()
}

// HandleMessage 实现 kafka.ConsumerHandler 接口
func (c *IndexConsumer) HandleMessage(msg *sarama.ConsumerMessage) error {
	ctx := context.Background()

	var event indexEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// 畸形事件直接丢弃，重试也救不回来
		c.logger.Error(ctx, "Failed to decode message event",
			logger.F("error", err.Error()),
			logger.F("offset", msg.Offset))
		return nil
	}

	message, err := c.messageDAO.GetByID(ctx, event.MessageID)
	if err != nil {
		c.logger.Error(ctx, "Failed to load message for indexing",
			logger.F("error", err.Error()),
			logger.F("messageID", event.MessageID))
		return err
	}
	if message == nil {
		// 消息在索引前已被删除，幂等跳过
		return nil
	}

	if err := c.searchDAO.IndexMessage(ctx, message); err != nil {
		c.logger.Error(ctx, "Failed to index message",
			logger.F("error", err.Error()),
			logger.F("messageID", event.MessageID))
		return err
	}

	return nil
}
