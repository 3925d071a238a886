package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"amity-social/pkg/httpx"
	"amity-social/pkg/logger"
)

// registerUserBody 注册请求体
type registerUserBody struct {
	Username string `json:"username" binding:"required"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// RegisterUser 注册用户，公开接口，返回用户资料与访问令牌
func (h *HTTPHandler) RegisterUser(c *gin.Context) {
	ctx := c.Request.Context()

	var body registerUserBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn(ctx, "Invalid register request", logger.F("error", err.Error()))
		httpx.WriteError(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid request body")
		return
	}

	user, token, err := h.userSvc.Register(ctx, body.Username, body.Nickname, body.Avatar)
	if err != nil {
		h.logger.Warn(ctx, "Register user failed",
			logger.F("error", err.Error()),
			logger.F("username", body.Username))
		h.writeDomainError(c, err)
		return
	}

	httpx.WriteJSON(c, http.StatusCreated, h.converter.BuildRegisterResponse(user, token))
}

// GetUser 查询用户资料
func (h *HTTPHandler) GetUser(c *gin.Context) {
	ctx := c.Request.Context()

	if _, ok := h.callerID(c); !ok {
		return
	}
	userID, ok := h.pathID(c, "userID")
	if !ok {
		return
	}

	user, err := h.userSvc.GetUser(ctx, userID)
	if err != nil {
		h.logger.Warn(ctx, "Get user failed",
			logger.F("error", err.Error()),
			logger.F("userID", userID))
		h.writeDomainError(c, err)
		return
	}

	httpx.WriteJSON(c, http.StatusOK, h.converter.UserModelToResponse(user))
}
