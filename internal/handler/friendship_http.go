package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"amity-social/internal/service"
	"amity-social/pkg/httpx"
	"amity-social/pkg/logger"
)

// SendFriendRequest 发送好友申请
func (h *HTTPHandler) SendFriendRequest(c *gin.Context) {
	ctx := c.Request.Context()

	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	targetID, ok := h.pathID(c, "userID")
	if !ok {
		return
	}

	friendship, err := h.friendshipSvc.SendRequest(ctx, callerID, targetID)
	if err != nil {
		h.logger.Warn(ctx, "Send friend request failed",
			logger.F("error", err.Error()),
			logger.F("callerID", callerID),
			logger.F("targetID", targetID))
		h.writeDomainError(c, err)
		return
	}

	httpx.WriteJSON(c, http.StatusCreated, h.converter.FriendshipModelToResponse(friendship))
}

// respondRequestBody 申请处理请求体
type respondRequestBody struct {
	Action string `json:"action" binding:"required"`
}

// RespondRequest 接受或拒绝好友申请
func (h *HTTPHandler) RespondRequest(c *gin.Context) {
	ctx := c.Request.Context()

	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	requestID, ok := h.pathID(c, "requestID")
	if !ok {
		return
	}

	var body respondRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn(ctx, "Invalid respond request", logger.F("error", err.Error()))
		httpx.WriteError(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid request body")
		return
	}
	if body.Action != "accept" && body.Action != "reject" {
		h.writeDomainError(c, service.ErrInvalidAction)
		return
	}

	friendship, err := h.friendshipSvc.Respond(ctx, callerID, requestID, body.Action == "accept")
	if err != nil {
		h.logger.Warn(ctx, "Respond friend request failed",
			logger.F("error", err.Error()),
			logger.F("callerID", callerID),
			logger.F("requestID", requestID),
			logger.F("action", body.Action))
		h.writeDomainError(c, err)
		return
	}

	if friendship != nil {
		httpx.WriteJSON(c, http.StatusOK, h.converter.FriendshipModelToResponse(friendship))
		return
	}
	httpx.WriteJSON(c, http.StatusOK, gin.H{"status": "rejected"})
}

// CancelRequest 取消自己发出的好友申请
func (h *HTTPHandler) CancelRequest(c *gin.Context) {
	ctx := c.Request.Context()

	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	requestID, ok := h.pathID(c, "requestID")
	if !ok {
		return
	}

	if err := h.friendshipSvc.Cancel(ctx, callerID, requestID); err != nil {
		h.logger.Warn(ctx, "Cancel friend request failed",
			logger.F("error", err.Error()),
			logger.F("callerID", callerID),
			logger.F("requestID", requestID))
		h.writeDomainError(c, err)
		return
	}

	httpx.WriteJSON(c, http.StatusOK, gin.H{"status": "cancelled"})
}

// RemoveFriend 解除好友关系
func (h *HTTPHandler) RemoveFriend(c *gin.Context) {
	ctx := c.Request.Context()

	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	friendshipID, ok := h.pathID(c, "requestID")
	if !ok {
		return
	}

	if err := h.friendshipSvc.Remove(ctx, callerID, friendshipID); err != nil {
		h.logger.Warn(ctx, "Remove friend failed",
			logger.F("error", err.Error()),
			logger.F("callerID", callerID),
			logger.F("friendshipID", friendshipID))
		h.writeDomainError(c, err)
		return
	}

	httpx.WriteJSON(c, http.StatusOK, gin.H{"status": "removed"})
}

// ListRequests 查询当前用户的待处理申请列表
func (h *HTTPHandler) ListRequests(c *gin.Context) {
	ctx := c.Request.Context()

	callerID, ok := h.callerID(c)
	if !ok {
		return
	}

	requests, err := h.friendshipSvc.ListRequests(ctx, callerID)
	if err != nil {
		h.logger.Error(ctx, "List friend requests failed",
			logger.F("error", err.Error()),
			logger.F("callerID", callerID))
		h.writeDomainError(c, err)
		return
	}

	httpx.WriteJSON(c, http.StatusOK, gin.H{"requests": h.converter.BuildRequestListResponse(requests)})
}

// ListFriends 查询指定用户的好友列表
func (h *HTTPHandler) ListFriends(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := h.pathID(c, "userID")
	if !ok {
		return
	}

	page, pageSize := h.pagination(c)
	friends, total, err := h.friendshipSvc.ListFriends(ctx, userID, page, pageSize)
	if err != nil {
		h.logger.Error(ctx, "List friends failed",
			logger.F("error", err.Error()),
			logger.F("userID", userID))
		h.writeDomainError(c, err)
		return
	}

	httpx.WriteJSON(c, http.StatusOK, h.converter.BuildFriendListResponse(friends, total, page, pageSize))
}
