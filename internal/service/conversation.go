package service

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"amity-social/internal/dao"
	"amity-social/internal/model"
	"amity-social/pkg/logger"
	"amity-social/pkg/telemetry"
)

// ConversationAggregator 会话列表聚合器
// 消息集合里没有会话实体，按对端派生：每个对端恰好一条摘要，
// 零消息的对端不出现
type ConversationAggregator struct {
	messageDAO dao.MessageDAO
	userDAO    dao.UserDAO
	logger     logger.Logger
}

// NewConversationAggregator 创建会话聚合器实例
func NewConversationAggregator(messageDAO dao.MessageDAO, userDAO dao.UserDAO, log logger.Logger) *ConversationAggregator {
	return &ConversationAggregator{
		messageDAO: messageDAO,
		userDAO:    userDAO,
		logger:     log,
	}
}

// ListConversations 聚合用户的全部会话摘要，按最后消息时间倒序
func (a *ConversationAggregator) ListConversations(ctx context.Context, userID int64) ([]*model.ConversationSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "conversation.service.ListConversations")
	defer span.End()

	span.SetAttributes(attribute.Int64("conversation.user_id", userID))

	counterparts, err := a.messageDAO.DistinctCounterparts(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list counterparts")
		return nil, fmt.Errorf("查询会话对端失败: %v", err)
	}

	summaries := make([]*model.ConversationSummary, 0, len(counterparts))
	counterpartIDs := make([]int64, 0, len(counterparts))
	for _, counterpartID := range counterparts {
		last, err := a.messageDAO.LastMessageBetween(ctx, userID, counterpartID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load last message")
			return nil, fmt.Errorf("查询最后消息失败: %v", err)
		}
		if last == nil {
			// 对端与删除会话并发时可能已无消息，跳过
			continue
		}

		unread, err := a.messageDAO.CountUnreadFrom(ctx, userID, counterpartID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to count unread")
			return nil, fmt.Errorf("统计未读数失败: %v", err)
		}

		summaries = append(summaries, &model.ConversationSummary{
			LastMessage: last,
			UnreadCount: unread,
		})
		counterpartIDs = append(counterpartIDs, counterpartID)
	}

	users, err := a.userDAO.GetByIDs(ctx, counterpartIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load counterpart profiles")
		return nil, fmt.Errorf("查询对端资料失败: %v", err)
	}
	for i, summary := range summaries {
		summary.Counterpart = users[counterpartIDs[i]]
	}

	sort.Slice(summaries, func(i, j int) bool {
		mi, mj := summaries[i].LastMessage, summaries[j].LastMessage
		if !mi.CreatedAt.Equal(mj.CreatedAt) {
			return mi.CreatedAt.After(mj.CreatedAt)
		}
		return mi.MessageID > mj.MessageID
	})

	span.SetAttributes(attribute.Int("conversation.count", len(summaries)))
	span.SetStatus(codes.Ok, "conversations aggregated")
	return summaries, nil
}
