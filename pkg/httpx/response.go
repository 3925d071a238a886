package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"google.golang.org/protobuf/proto"
)

// ErrorBody 统一错误响应体
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse 错误响应外层
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// WriteObject 兼容protobuf和json
func WriteObject(c *gin.Context, obj interface{}, err error) {
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadRequest
	}

	switch c.ContentType() {
	case binding.MIMEPROTOBUF:
		if msg, ok := obj.(proto.Message); ok {
			c.ProtoBuf(status, msg)
			return
		}
		c.String(http.StatusInternalServerError, "expected proto.Message for protobuf response")
	default:
		c.JSON(status, obj)
	}
}

// WriteJSON 写出指定状态码的JSON响应
func WriteJSON(c *gin.Context, status int, obj interface{}) {
	c.JSON(status, obj)
}

// WriteError 写出统一格式的错误响应
func WriteError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}
