package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"amity-social/internal/service"
	"amity-social/pkg/httpx"
	"amity-social/pkg/logger"
)

// errorMapping 领域错误到HTTP状态码与稳定错误码的映射
type errorMapping struct {
	status int
	code   string
}

var errorMappings = map[error]errorMapping{
	// 校验类 → 400
	service.ErrSelfRequest:    {http.StatusBadRequest, "INVALID_ARGUMENT"},
	service.ErrSelfMessage:    {http.StatusBadRequest, "INVALID_ARGUMENT"},
	service.ErrInvalidContent: {http.StatusBadRequest, "INVALID_ARGUMENT"},
	service.ErrInvalidAction:  {http.StatusBadRequest, "INVALID_ARGUMENT"},

	// 资源缺失类 → 404
	service.ErrUserNotFound:    {http.StatusNotFound, "NOT_FOUND"},
	service.ErrRequestNotFound: {http.StatusNotFound, "NOT_FOUND"},
	service.ErrMessageNotFound: {http.StatusNotFound, "NOT_FOUND"},

	// 权限类 → 403
	service.ErrForbidden:     {http.StatusForbidden, "FORBIDDEN"},
	service.ErrNotAuthorized: {http.StatusForbidden, "NOT_AUTHORIZED"},

	// 冲突类 → 409
	service.ErrAlreadyFriends:         {http.StatusConflict, "ALREADY_FRIENDS"},
	service.ErrRequestAlreadySent:     {http.StatusConflict, "REQUEST_ALREADY_SENT"},
	service.ErrRequestAlreadyReceived: {http.StatusConflict, "REQUEST_ALREADY_RECEIVED"},
	service.ErrBlocked:                {http.StatusConflict, "BLOCKED"},
	service.ErrAlreadyProcessed:       {http.StatusConflict, "ALREADY_PROCESSED"},
	service.ErrNotFriends:             {http.StatusConflict, "NOT_FRIENDS"},
	service.ErrUsernameTaken:          {http.StatusConflict, "USERNAME_TAKEN"},
}

// writeDomainError 把服务层错误写成统一错误信封
// 未识别的错误一律按存储/内部故障处理，细节只进日志不出线
func (h *HTTPHandler) writeDomainError(c *gin.Context, err error) {
	for sentinel, mapping := range errorMappings {
		if errors.Is(err, sentinel) {
			httpx.WriteError(c, mapping.status, mapping.code, sentinel.Error())
			return
		}
	}

	h.logger.Error(c.Request.Context(), "Internal error",
		logger.F("error", err.Error()),
		logger.F("path", c.Request.URL.Path))
	httpx.WriteError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
}
