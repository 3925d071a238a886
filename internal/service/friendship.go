package service

import (
	"context"
	"fmt"

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

// FriendshipService 好友关系状态机
// none → pending → accepted | 删除(拒绝/取消)；blocked为防御性终态
type FriendshipService struct {
	relationshipDAO dao.RelationshipDAO
	userDAO         dao.UserDAO
	friendSet       FriendSet
	kafka           *kafka.Producer
	logger          logger.Logger
}

// NewFriendshipService 创建好友关系服务实例
func NewFriendshipService(relationshipDAO dao.RelationshipDAO, userDAO dao.UserDAO, friendSet FriendSet, producer *kafka.Producer, log logger.Logger) *FriendshipService {
	return &FriendshipService{
		relationshipDAO: relationshipDAO,
		userDAO:         userDAO,
		friendSet:       friendSet,
		kafka:           producer,
		logger:          log,
	}
}

// SendRequest 发送好友申请
func (s *FriendshipService) SendRequest(ctx context.Context, requesterID, targetID int64) (*model.Friendship, error) {
	ctx, span := telemetry.StartSpan(ctx, "friendship.service.SendRequest")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("friendship.requester_id", requesterID),
		attribute.Int64("friendship.target_id", targetID),
	)
	ctx = tracecontext.WithUserID(ctx, requesterID)

	if requesterID == targetID {
		span.SetStatus(codes.Error, "self request")
		return nil, ErrSelfRequest
	}

	target, err := s.userDAO.GetByID(ctx, targetID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check target user")
		return nil, fmt.Errorf("查询目标用户失败: %v", err)
	}
	if target == nil {
		span.SetStatus(codes.Error, "target user not found")
		return nil, ErrUserNotFound
	}

	existing, err := s.relationshipDAO.GetByPair(ctx, requesterID, targetID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check existing relationship")
		return nil, fmt.Errorf("查询关系记录失败: %v", err)
	}
	if existing != nil {
		span.SetStatus(codes.Error, "relationship already exists")
		return nil, s.mapExistingRelationship(existing, requesterID)
	}

	low, high := model.CanonicalPair(requesterID, targetID)
	friendship := &model.Friendship{
		ID:           snowflake.GenerateID(),
		UserLow:      low,
		UserHigh:     high,
		ActionUserID: requesterID,
		Status:       model.FriendshipStatusPending,
	}

	if err := s.relationshipDAO.Create(ctx, friendship); err != nil {
		// 并发请求同一用户对时输家撞唯一索引，重读后按现状映射
		if err == dao.ErrDuplicatePair {
			existing, rerr := s.relationshipDAO.GetByPair(ctx, requesterID, targetID)
			if rerr == nil && existing != nil {
				span.SetStatus(codes.Error, "lost insert race")
				return nil, s.mapExistingRelationship(existing, requesterID)
			}
			span.SetStatus(codes.Error, "lost insert race")
			return nil, ErrRequestAlreadySent
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create friendship")
		return nil, fmt.Errorf("创建关系记录失败: %v", err)
	}

	s.logger.Info(ctx, "Friend request sent successfully",
		logger.F("requesterID", requesterID),
		logger.F("targetID", targetID),
		logger.F("friendshipID", friendship.ID))

	span.SetStatus(codes.Ok, "friend request sent successfully")
	return friendship, nil
}

// mapExistingRelationship 把已有记录的状态映射到冲突错误
func (s *FriendshipService) mapExistingRelationship(existing *model.Friendship, requesterID int64) error {
	switch existing.Status {
	case model.FriendshipStatusAccepted:
		return ErrAlreadyFriends
	case model.FriendshipStatusBlocked:
		return ErrBlocked
	case model.FriendshipStatusPending:
		if existing.ActionUserID == requesterID {
			return ErrRequestAlreadySent
		}
		return ErrRequestAlreadyReceived
	}
	return ErrRequestAlreadySent
}

// Respond 处理好友申请，accept和reject是互斥的一次性转移
func (s *FriendshipService) Respond(ctx context.Context, responderID, requestID int64, accept bool) (*model.Friendship, error) {
	ctx, span := telemetry.StartSpan(ctx, "friendship.service.Respond")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("friendship.responder_id", responderID),
		attribute.Int64("friendship.request_id", requestID),
		attribute.Bool("friendship.accept", accept),
	)
	ctx = tracecontext.WithUserID(ctx, responderID)

	friendship, err := s.relationshipDAO.GetByID(ctx, requestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get friendship")
		return nil, fmt.Errorf("查询关系记录失败: %v", err)
	}
	if friendship == nil {
		span.SetStatus(codes.Error, "request not found")
		return nil, ErrRequestNotFound
	}
	if !friendship.Involves(responderID) {
		span.SetStatus(codes.Error, "responder is not a party")
		return nil, ErrForbidden
	}
	if friendship.Status != model.FriendshipStatusPending {
		span.SetStatus(codes.Error, "already processed")
		return nil, ErrAlreadyProcessed
	}

	otherID := friendship.OtherSide(responderID)

	if accept {
		// CAS到accepted，并发的第二次respond在这里失败
		updated, err := s.relationshipDAO.UpdateStatusIfPending(ctx, requestID, model.FriendshipStatusAccepted, responderID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to accept request")
			return nil, fmt.Errorf("接受好友申请失败: %v", err)
		}
		if !updated {
			span.SetStatus(codes.Error, "already processed")
			return nil, ErrAlreadyProcessed
		}

		if err := s.friendSet.Add(ctx, responderID, otherID); err != nil {
			// 投影失败不回滚，DB是权威，下次授权查询自愈
			s.logger.Warn(ctx, "Failed to update friend set projection",
				logger.F("error", err.Error()),
				logger.F("userID", responderID),
				logger.F("friendID", otherID))
		}

		publishEvent(ctx, s.kafka, s.logger, model.TopicFriendAccepted, friendship.ID, &FriendEvent{
			FriendshipID: friendship.ID,
			UserID:       responderID,
			FriendID:     otherID,
			ActionUserID: responderID,
			Timestamp:    nowUnix(),
		})

		friendship.Status = model.FriendshipStatusAccepted
		friendship.ActionUserID = responderID

		s.logger.Info(ctx, "Friend request accepted",
			logger.F("friendshipID", friendship.ID),
			logger.F("responderID", responderID))

		span.SetStatus(codes.Ok, "friend request accepted")
		return friendship, nil
	}

	deleted, err := s.relationshipDAO.DeleteIfPending(ctx, requestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to reject request")
		return nil, fmt.Errorf("拒绝好友申请失败: %v", err)
	}
	if !deleted {
		span.SetStatus(codes.Error, "already processed")
		return nil, ErrAlreadyProcessed
	}

	publishEvent(ctx, s.kafka, s.logger, model.TopicFriendRejected, friendship.ID, &FriendEvent{
		FriendshipID: friendship.ID,
		UserID:       responderID,
		FriendID:     otherID,
		ActionUserID: responderID,
		Timestamp:    nowUnix(),
	})

	s.logger.Info(ctx, "Friend request rejected",
		logger.F("friendshipID", friendship.ID),
		logger.F("responderID", responderID))

	span.SetStatus(codes.Ok, "friend request rejected")
	return nil, nil
}

// Cancel 取消自己发出的好友申请，只有原actionUser可取消
func (s *FriendshipService) Cancel(ctx context.Context, requesterID, requestID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "friendship.service.Cancel")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("friendship.requester_id", requesterID),
		attribute.Int64("friendship.request_id", requestID),
	)
	ctx = tracecontext.WithUserID(ctx, requesterID)

	friendship, err := s.relationshipDAO.GetByID(ctx, requestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get friendship")
		return fmt.Errorf("查询关系记录失败: %v", err)
	}
	if friendship == nil {
		span.SetStatus(codes.Error, "request not found")
		return ErrRequestNotFound
	}
	if friendship.ActionUserID != requesterID {
		span.SetStatus(codes.Error, "caller is not the requester")
		return ErrForbidden
	}
	if friendship.Status != model.FriendshipStatusPending {
		span.SetStatus(codes.Error, "already processed")
		return ErrAlreadyProcessed
	}

	deleted, err := s.relationshipDAO.DeleteIfPending(ctx, requestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to cancel request")
		return fmt.Errorf("取消好友申请失败: %v", err)
	}
	if !deleted {
		span.SetStatus(codes.Error, "already processed")
		return ErrAlreadyProcessed
	}

	s.logger.Info(ctx, "Friend request cancelled",
		logger.F("friendshipID", requestID),
		logger.F("requesterID", requesterID))

	span.SetStatus(codes.Ok, "friend request cancelled")
	return nil
}

// Remove 解除好友关系
// 先清投影再删权威记录，投影清除失败则整个操作失败，
// 避免出现记录已删而投影仍放行消息的脏授权
func (s *FriendshipService) Remove(ctx context.Context, userID, friendshipID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "friendship.service.Remove")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("friendship.user_id", userID),
		attribute.Int64("friendship.id", friendshipID),
	)
	ctx = tracecontext.WithUserID(ctx, userID)

	friendship, err := s.relationshipDAO.GetByID(ctx, friendshipID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get friendship")
		return fmt.Errorf("查询关系记录失败: %v", err)
	}
	if friendship == nil {
		span.SetStatus(codes.Error, "friendship not found")
		return ErrRequestNotFound
	}
	if !friendship.Involves(userID) {
		span.SetStatus(codes.Error, "caller is not a party")
		return ErrForbidden
	}
	if friendship.Status != model.FriendshipStatusAccepted {
		span.SetStatus(codes.Error, "not friends")
		return ErrNotFriends
	}

	otherID := friendship.OtherSide(userID)
	if err := s.friendSet.Remove(ctx, userID, otherID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to clear friend set projection")
		return fmt.Errorf("清除好友投影失败: %v", err)
	}

	deleted, err := s.relationshipDAO.DeleteIfAccepted(ctx, friendshipID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to remove friendship")
		return fmt.Errorf("删除好友关系失败: %v", err)
	}
	if !deleted {
		span.SetStatus(codes.Error, "not friends")
		return ErrNotFriends
	}

	// 授权回源的修复路径可能在删除窗口内把投影加回来，删完再清一次
	if err := s.friendSet.Remove(ctx, userID, otherID); err != nil {
		s.logger.Warn(ctx, "Failed to clear friend set projection",
			logger.F("error", err.Error()),
			logger.F("userID", userID),
			logger.F("friendID", otherID))
	}

	publishEvent(ctx, s.kafka, s.logger, model.TopicFriendRemoved, friendship.ID, &FriendEvent{
		FriendshipID: friendship.ID,
		UserID:       userID,
		FriendID:     otherID,
		ActionUserID: userID,
		Timestamp:    nowUnix(),
	})

	s.logger.Info(ctx, "Friendship removed",
		logger.F("friendshipID", friendshipID),
		logger.F("userID", userID))

	span.SetStatus(codes.Ok, "friendship removed")
	return nil
}

// IsAuthorizedToMessage 判断两用户间是否允许发消息
// Redis投影做快路径，未命中回源PostgreSQL并顺手修复投影
func (s *FriendshipService) IsAuthorizedToMessage(ctx context.Context, userA, userB int64) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "friendship.service.IsAuthorizedToMessage")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("friendship.user_a", userA),
		attribute.Int64("friendship.user_b", userB),
	)

	if inSet, err := s.friendSet.Contains(ctx, userA, userB); err == nil && inSet {
		span.SetStatus(codes.Ok, "authorized via projection")
		return true, nil
	}

	friendship, err := s.relationshipDAO.GetByPair(ctx, userA, userB)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get friendship")
		return false, fmt.Errorf("查询关系记录失败: %v", err)
	}

	authorized := friendship != nil && friendship.Status == model.FriendshipStatusAccepted
	if authorized {
		if err := s.friendSet.Add(ctx, userA, userB); err != nil {
			s.logger.Warn(ctx, "Failed to repair friend set projection",
				logger.F("error", err.Error()))
		}
	}

	span.SetStatus(codes.Ok, "authorization checked")
	return authorized, nil
}

// ListFriends 获取好友列表，带用户资料，按关系更新时间倒序分页
func (s *FriendshipService) ListFriends(ctx context.Context, userID int64, page, pageSize int) ([]*model.FriendInfo, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "friendship.service.ListFriends")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("friendship.user_id", userID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)

	friendships, err := s.relationshipDAO.ListAccepted(ctx, userID, page, pageSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list friendships")
		return nil, 0, fmt.Errorf("查询好友列表失败: %v", err)
	}

	total, err := s.relationshipDAO.CountAccepted(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to count friendships")
		return nil, 0, fmt.Errorf("统计好友数失败: %v", err)
	}

	friendIDs := make([]int64, 0, len(friendships))
	for _, f := range friendships {
		friendIDs = append(friendIDs, f.OtherSide(userID))
	}
	users, err := s.userDAO.GetByIDs(ctx, friendIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load friend profiles")
		return nil, 0, fmt.Errorf("查询好友资料失败: %v", err)
	}

	friends := make([]*model.FriendInfo, 0, len(friendships))
	for _, f := range friendships {
		friendID := f.OtherSide(userID)
		friends = append(friends, &model.FriendInfo{
			FriendshipID: f.ID,
			User:         users[friendID],
			Since:        f.UpdatedAt,
		})
	}

	span.SetStatus(codes.Ok, "friends listed")
	return friends, total, nil
}

// ListRequests 获取待处理申请列表，标注申请方向
func (s *FriendshipService) ListRequests(ctx context.Context, userID int64) ([]*model.RequestInfo, error) {
	ctx, span := telemetry.StartSpan(ctx, "friendship.service.ListRequests")
	defer span.End()

	span.SetAttributes(attribute.Int64("friendship.user_id", userID))

	friendships, err := s.relationshipDAO.ListPending(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list pending requests")
		return nil, fmt.Errorf("查询申请列表失败: %v", err)
	}

	otherIDs := make([]int64, 0, len(friendships))
	for _, f := range friendships {
		otherIDs = append(otherIDs, f.OtherSide(userID))
	}
	users, err := s.userDAO.GetByIDs(ctx, otherIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load request profiles")
		return nil, fmt.Errorf("查询申请人资料失败: %v", err)
	}

	requests := make([]*model.RequestInfo, 0, len(friendships))
	for _, f := range friendships {
		otherID := f.OtherSide(userID)
		requests = append(requests, &model.RequestInfo{
			ID:         f.ID,
			Status:     f.Status,
			CreatedAt:  f.CreatedAt,
			IsIncoming: f.ActionUserID != userID,
			User:       users[otherID],
		})
	}

	span.SetStatus(codes.Ok, "requests listed")
	return requests, nil
}
