package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"amity-social/internal/converter"
	"amity-social/internal/model"
	"amity-social/internal/service"
	"amity-social/pkg/httpx"
	"amity-social/pkg/logger"
)

// HTTPHandler HTTP协议处理器
type HTTPHandler struct {
	friendshipSvc *service.FriendshipService
	messagingSvc  *service.MessagingService
	userSvc       *service.UserService
	converter     *converter.Converter
	logger        logger.Logger
}

// NewHTTPHandler 创建HTTP处理器
func NewHTTPHandler(friendshipSvc *service.FriendshipService, messagingSvc *service.MessagingService, userSvc *service.UserService, conv *converter.Converter, log logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		friendshipSvc: friendshipSvc,
		messagingSvc:  messagingSvc,
		userSvc:       userSvc,
		converter:     conv,
		logger:        log,
	}
}

// RegisterRoutes 注册HTTP路由
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	friendships := r.Group("/api/v1/friendships")
	{
		friendships.POST("/:userID/request", h.SendFriendRequest)    // 发送好友申请
		friendships.PUT("/:requestID/respond", h.RespondRequest)     // 接受或拒绝申请
		friendships.DELETE("/:requestID/cancel", h.CancelRequest)    // 取消自己发出的申请
		friendships.DELETE("/:requestID/remove", h.RemoveFriend)     // 解除好友关系（gin 同一方法树内通配符名必须一致，故与 cancel 共用 :requestID）
		friendships.GET("/requests", h.ListRequests)                 // 待处理申请列表
		friendships.GET("/user/:userID", h.ListFriends)              // 好友列表
	}

	messages := r.Group("/api/v1/messages")
	{
		messages.POST("", h.SendMessage)                             // 发送消息
		messages.GET("", h.ListConversations)                        // 会话列表
		messages.GET("/unread/count", h.UnreadCount)                 // 未读总数
		messages.GET("/search", h.SearchMessages)                    // 全文搜索
		messages.GET("/:userID", h.FetchThread)                      // 聊天记录（带已读副作用）
		messages.PUT("/:userID/read", h.MarkThreadRead)              // 整会话置已读
		messages.DELETE("/conversation/:userID", h.DeleteConversation)
		messages.DELETE("/:messageID", h.DeleteMessage)              // 删除单条消息
	}

	users := r.Group("/api/v1/users")
	{
		users.POST("", h.RegisterUser) // 注册（公开）
		users.GET("/:userID", h.GetUser)
	}
}

// callerID 从认证中间件注入的上下文里取当前用户
func (h *HTTPHandler) callerID(c *gin.Context) (int64, bool) {
	v, ok := c.Get("userID")
	if !ok {
		httpx.WriteError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing identity")
		return 0, false
	}
	userID, ok := v.(int64)
	if !ok || userID == 0 {
		httpx.WriteError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid identity")
		return 0, false
	}
	return userID, true
}

// pathID 解析路径中的int64参数
func (h *HTTPHandler) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid "+name)
		return 0, false
	}
	return id, true
}

// pagination 解析page和limit查询参数并夹取到合法区间
func (h *HTTPHandler) pagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(model.DefaultPage)))
	if err != nil || page < 1 {
		page = model.DefaultPage
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(model.DefaultPageSize)))
	if err != nil || pageSize < 1 {
		pageSize = model.DefaultPageSize
	}
	if pageSize > model.MaxPageSize {
		pageSize = model.MaxPageSize
	}
	return page, pageSize
}
