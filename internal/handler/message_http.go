package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"amity-social/pkg/httpx"
	"amity-social/pkg/logger"
)

// sendMessageBody 发消息请求体
type sendMessageBody struct {
	RecipientID int64  `json:"recipientId" binding:"required"`
	Content     string `json:"content"`
	MediaType   string `json:"mediaType"`
	MediaURL    string `json:"mediaUrl"`
}

// SendMessage 发送消息
func (h *HTTPHandler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()

	callerID, ok := h.callerID(c)
	if !ok {
		return
	}

	var body sendMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn(ctx, "Invalid send message request", logger.F("error", err.Error()))
		httpx.WriteError(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid request body")
		return
	}

	msg, err := h.messagingSvc.Send(ctx, callerID, body.RecipientID, body.Content, body.MediaType, body.MediaURL)
	if err != nil {
		h.logger.Warn(ctx, "Send message failed",
			logger.F("error", err.Error()),
			logger.F("senderID", callerID),
			logger.F("recipientID", body.RecipientID))
		h.writeDomainError(c, err)
		return
	}

	httpx.WriteJSON(c, http.StatusCreated, h.converter.MessageModelToResponse(msg))
}

// ListConversations 查询会话列表
func (h *HTTPHandler) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()

	callerID, ok := h.callerID(c)
	if !ok {
		return
	}

	summaries, err := h.messagingSvc.ListConversations(ctx, callerID)
	if err != nil {
		h.logger.Error(ctx, "List conversations failed",
			logger.F("error", err.Error()),
			logger.F("userID", callerID))
		h.writeDomainError(c, err)
		return
	}

	httpx.WriteJSON(c, http.StatusOK, gin.H{"conversations": h.converter.BuildConversationListResponse(summaries)})
}

// FetchThread 查询与某用户的聊天记录，读取即把对方发来的未读置已读
func (h *HTTPHandler) FetchThread(c *gin.Context) {
	ctx := c.Request.Context()

	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	counterpartID, ok := h.pathID(c, "userID")
	if !ok {
		return
	}

	page, pageSize := h.pagination(c)
	messages, total, err := h.messagingSvc.FetchThread(ctx, callerID, counterpartID, page, pageSize)
	if err != nil {
		h.logger.Error(ctx, "Fetch thread failed",
			logger.F("error", err.Error()),
			logger.F("viewerID", callerID),
			logger.F("counterpartID", counterpartID))
		h.writeDomainError(c, err)
		return
	}

	httpx.WriteJSON(c, http.StatusOK, h.converter.BuildMessagePageResponse(messages, total, page, pageSize))
}

// UnreadCount 查询未读消息总数
func (h *HTTPHandler) UnreadCount(c *gin.Context) {
	ctx := c.Request.Context()

	callerID, ok := h.callerID(c)
	if !ok {
		return
	}

	count, err := h.messagingSvc.UnreadCount(ctx, callerID)
	if err != nil {
		h.logger.Error(ctx, "Count unread failed",
			logger.F("error", err.Error()),
			logger.F("userID", callerID))
		h.writeDomainError(c, err)
		return
	}

	httpx.WriteJSON(c, http.StatusOK, gin.H{"unreadCount": count})
}

// SearchMessages 全文搜索自己参与的消息
func (h *HTTPHandler) SearchMessages(c *gin.Context) {
	ctx := c.Request.Context()

	callerID, ok := h.callerID(c)
	if !ok {
		return
	}

	query := c.Query("q")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	results, err := h.messagingSvc.SearchMessages(ctx, callerID, query, limit)
	if err != nil {
		h.logger.Error(ctx, "Search messages failed",
			logger.F("error", err.Error()),
			logger.F("userID", callerID),
			logger.F("query", query))
		h.writeDomainError(c, err)
		return
	}

	httpx.WriteJSON(c, http.StatusOK, gin.H{"messages": h.converter.MessageModelsToResponse(results)})
}

// MarkThreadRead 把与某用户的会话整批置已读
func (h *HTTPHandler) MarkThreadRead(c *gin.Context) {
	ctx := c.Request.Context()

	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	counterpartID, ok := h.pathID(c, "userID")
	if !ok {
		return
	}

	modified, err := h.messagingSvc.MarkThreadRead(ctx, callerID, counterpartID)
	if err != nil {
		h.logger.Error(ctx, "Mark thread read failed",
			logger.F("error", err.Error()),
			logger.F("viewerID", callerID),
			logger.F("counterpartID", counterpartID))
		h.writeDomainError(c, err)
		return
	}

	httpx.WriteJSON(c, http.StatusOK, gin.H{"marked": modified})
}

// DeleteMessage 删除单条消息
func (h *HTTPHandler) DeleteMessage(c *gin.Context) {
	ctx := c.Request.Context()

	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	messageID, ok := h.pathID(c, "messageID")
	if !ok {
		return
	}

	if err := h.messagingSvc.DeleteMessage(ctx, callerID, messageID); err != nil {
		h.logger.Warn(ctx, "Delete message failed",
			logger.F("error", err.Error()),
			logger.F("userID", callerID),
			logger.F("messageID", messageID))
		h.writeDomainError(c, err)
		return
	}

	httpx.WriteJSON(c, http.StatusOK, gin.H{"status": "deleted"})
}

// DeleteConversation 删除与某用户的整个会话
func (h *HTTPHandler) DeleteConversation(c *gin.Context) {
	ctx := c.Request.Context()

	callerID, ok := h.callerID(c)
	if !ok {
		return
	}
	counterpartID, ok := h.pathID(c, "userID")
	if !ok {
		return
	}

	deleted, err := h.messagingSvc.DeleteConversation(ctx, callerID, counterpartID)
	if err != nil {
		h.logger.Error(ctx, "Delete conversation failed",
			logger.F("error", err.Error()),
			logger.F("userID", callerID),
			logger.F("counterpartID", counterpartID))
		h.writeDomainError(c, err)
		return
	}

	httpx.WriteJSON(c, http.StatusOK, gin.H{"deleted": deleted})
}
