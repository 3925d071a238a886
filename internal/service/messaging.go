package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"amity-social/internal/dao"
	"amity-social/internal/model"
	tracecontext "amity-social/pkg/context"
	"amity-social/pkg/kafka"
	"amity-social/pkg/logger"
	"amity-social/pkg/snowflake"
	"amity-social/pkg/telemetry"
)

// Authorizer 发消息授权检查，由好友关系服务实现
type Authorizer interface {
	IsAuthorizedToMessage(ctx context.Context, userA, userB int64) (bool, error)
}

// MessagingService 单聊消息服务
type MessagingService struct {
	messageDAO dao.MessageDAO
	userDAO    dao.UserDAO
	authorizer Authorizer
	aggregator *ConversationAggregator
	search     dao.SearchDAO
	kafka      *kafka.Producer
	logger     logger.Logger
}

// NewMessagingService 创建消息服务实例，search可为nil表示搜索降级
func NewMessagingService(messageDAO dao.MessageDAO, userDAO dao.UserDAO, authorizer Authorizer, aggregator *ConversationAggregator, search dao.SearchDAO, producer *kafka.Producer, log logger.Logger) *MessagingService {
	return &MessagingService{
		messageDAO: messageDAO,
		userDAO:    userDAO,
		authorizer: authorizer,
		aggregator: aggregator,
		search:     search,
		kafka:      producer,
		logger:     log,
	}
}

// Send 发送消息，仅好友之间允许
func (s *MessagingService) Send(ctx context.Context, senderID, recipientID int64, content, mediaType, mediaURL string) (*model.Message, error) {
	ctx, span := telemetry.StartSpan(ctx, "messaging.service.Send")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("message.sender_id", senderID),
		attribute.Int64("message.recipient_id", recipientID),
	)
	ctx = tracecontext.WithUserID(ctx, senderID)

	if senderID == recipientID {
		span.SetStatus(codes.Error, "self message")
		return nil, ErrSelfMessage
	}

	if mediaType == "" {
		mediaType = model.MediaTypeNone
	}
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > model.MaxContentLength {
		span.SetStatus(codes.Error, "invalid content")
		return nil, ErrInvalidContent
	}
	if !model.ValidMediaType(mediaType) {
		span.SetStatus(codes.Error, "invalid media type")
		return nil, ErrInvalidContent
	}
	// 媒体URL与媒体类型必须同时出现或同时缺席
	if (mediaType == model.MediaTypeNone) != (mediaURL == "") {
		span.SetStatus(codes.Error, "media url mismatch")
		return nil, ErrInvalidContent
	}

	recipient, err := s.userDAO.GetByID(ctx, recipientID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check recipient")
		return nil, fmt.Errorf("查询接收方失败: %v", err)
	}
	if recipient == nil {
		span.SetStatus(codes.Error, "recipient not found")
		return nil, ErrUserNotFound
	}

	authorized, err := s.authorizer.IsAuthorizedToMessage(ctx, senderID, recipientID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check authorization")
		return nil, fmt.Errorf("校验发送权限失败: %v", err)
	}
	if !authorized {
		span.SetStatus(codes.Error, "not authorized to message")
		return nil, ErrNotAuthorized
	}

	msg := &model.Message{
		MessageID:   snowflake.GenerateID(),
		SenderID:    senderID,
		RecipientID: recipientID,
		PairKey:     model.PairKey(senderID, recipientID),
		Content:     content,
		MediaType:   mediaType,
		MediaURL:    mediaURL,
		IsRead:      false,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.messageDAO.Insert(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert message")
		return nil, fmt.Errorf("写入消息失败: %v", err)
	}

	publishEvent(ctx, s.kafka, s.logger, model.TopicMessageSent, msg.MessageID, &MessageEvent{
		MessageID:   msg.MessageID,
		SenderID:    senderID,
		RecipientID: recipientID,
		PairKey:     msg.PairKey,
		Timestamp:   nowUnix(),
	})

	// 搜索索引尽力而为，失败不影响消息链路
	if s.search != nil {
		if err := s.search.IndexMessage(ctx, msg); err != nil {
			s.logger.Warn(ctx, "Failed to index message",
				logger.F("error", err.Error()),
				logger.F("messageID", msg.MessageID))
		}
	}

	s.logger.Info(ctx, "Message sent successfully",
		logger.F("messageID", msg.MessageID),
		logger.F("senderID", senderID),
		logger.F("recipientID", recipientID))

	span.SetStatus(codes.Ok, "message sent successfully")
	return msg, nil
}

// FetchThread 拉取双方消息，按时间升序返回一页
// 读取有副作用：对端发给viewer的未读消息整批置已读
func (s *MessagingService) FetchThread(ctx context.Context, viewerID, counterpartID int64, page, pageSize int) ([]*model.Message, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "messaging.service.FetchThread")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("message.viewer_id", viewerID),
		attribute.Int64("message.counterpart_id", counterpartID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)

	messages, err := s.messageDAO.FindBetween(ctx, viewerID, counterpartID, page, pageSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to find messages")
		return nil, 0, fmt.Errorf("查询消息失败: %v", err)
	}

	total, err := s.messageDAO.CountBetween(ctx, viewerID, counterpartID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to count messages")
		return nil, 0, fmt.Errorf("统计消息数失败: %v", err)
	}

	// 存储按时间倒序翻页，这里倒过来给调用方时间升序
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	if _, err := s.messageDAO.MarkReadBulk(ctx, counterpartID, viewerID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to mark thread read")
		return nil, 0, fmt.Errorf("标记已读失败: %v", err)
	}

	span.SetStatus(codes.Ok, "thread fetched")
	return messages, total, nil
}

// ListConversations 获取会话列表
func (s *MessagingService) ListConversations(ctx context.Context, userID int64) ([]*model.ConversationSummary, error) {
	return s.aggregator.ListConversations(ctx, userID)
}

// UnreadCount 统计用户的全部未读消息数
func (s *MessagingService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "messaging.service.UnreadCount")
	defer span.End()

	span.SetAttributes(attribute.Int64("message.user_id", userID))

	count, err := s.messageDAO.CountUnreadForRecipient(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to count unread")
		return 0, fmt.Errorf("统计未读数失败: %v", err)
	}

	span.SetStatus(codes.Ok, "unread counted")
	return count, nil
}

// MarkThreadRead 把对端发给viewer的未读消息整批置已读，返回变更条数
func (s *MessagingService) MarkThreadRead(ctx context.Context, viewerID, counterpartID int64) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "messaging.service.MarkThreadRead")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("message.viewer_id", viewerID),
		attribute.Int64("message.counterpart_id", counterpartID),
	)

	modified, err := s.messageDAO.MarkReadBulk(ctx, counterpartID, viewerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to mark thread read")
		return 0, fmt.Errorf("标记已读失败: %v", err)
	}

	span.SetAttributes(attribute.Int64("message.marked", modified))
	span.SetStatus(codes.Ok, "thread marked read")
	return modified, nil
}

// DeleteMessage 删除单条消息，仅消息双方可操作
func (s *MessagingService) DeleteMessage(ctx context.Context, userID, messageID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "messaging.service.DeleteMessage")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("message.user_id", userID),
		attribute.Int64("message.id", messageID),
	)

	msg, err := s.messageDAO.GetByID(ctx, messageID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get message")
		return fmt.Errorf("查询消息失败: %v", err)
	}
	if msg == nil {
		span.SetStatus(codes.Error, "message not found")
		return ErrMessageNotFound
	}
	if msg.SenderID != userID && msg.RecipientID != userID {
		span.SetStatus(codes.Error, "caller is not a party")
		return ErrForbidden
	}

	if err := s.messageDAO.DeleteByID(ctx, messageID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete message")
		return fmt.Errorf("删除消息失败: %v", err)
	}

	s.logger.Info(ctx, "Message deleted",
		logger.F("messageID", messageID),
		logger.F("userID", userID))

	span.SetStatus(codes.Ok, "message deleted")
	return nil
}

// DeleteConversation 删除与对端的整个会话及其搜索索引
func (s *MessagingService) DeleteConversation(ctx context.Context, userID, counterpartID int64) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "messaging.service.DeleteConversation")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("message.user_id", userID),
		attribute.Int64("message.counterpart_id", counterpartID),
	)

	deleted, err := s.messageDAO.DeleteBetween(ctx, userID, counterpartID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete conversation")
		return 0, fmt.Errorf("删除会话失败: %v", err)
	}

	if s.search != nil {
		if err := s.search.DeleteThread(ctx, model.PairKey(userID, counterpartID)); err != nil {
			s.logger.Warn(ctx, "Failed to delete thread from search index",
				logger.F("error", err.Error()),
				logger.F("userID", userID),
				logger.F("counterpartID", counterpartID))
		}
	}

	s.logger.Info(ctx, "Conversation deleted",
		logger.F("userID", userID),
		logger.F("counterpartID", counterpartID),
		logger.F("deleted", deleted))

	span.SetStatus(codes.Ok, "conversation deleted")
	return deleted, nil
}

// SearchMessages 全文搜索用户参与的消息，搜索不可用时返回空结果
func (s *MessagingService) SearchMessages(ctx context.Context, userID int64, query string, limit int) ([]*model.Message, error) {
	ctx, span := telemetry.StartSpan(ctx, "messaging.service.SearchMessages")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("message.user_id", userID),
		attribute.String("message.query", query),
	)

	query = strings.TrimSpace(query)
	if query == "" {
		span.SetStatus(codes.Error, "empty query")
		return nil, ErrInvalidContent
	}
	if s.search == nil {
		span.SetStatus(codes.Ok, "search unavailable")
		return []*model.Message{}, nil
	}

	results, err := s.search.SearchMessages(ctx, userID, query, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to search messages")
		return nil, fmt.Errorf("搜索消息失败: %v", err)
	}

	span.SetAttributes(attribute.Int("message.hits", len(results)))
	span.SetStatus(codes.Ok, "messages searched")
	return results, nil
}
