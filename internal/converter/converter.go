package converter

import (
	"time"

	"amity-social/internal/model"
)

// Converter 转换器，把领域模型组装成REST响应
type Converter struct{}

// NewConverter 创建转换器实例
func NewConverter() *Converter {
	return &Converter{}
}

// UserInfo 用户资料响应项
type UserInfo struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	Avatar    string `json:"avatar,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// FriendshipInfo 好友关系响应项
type FriendshipInfo struct {
	ID           int64  `json:"id"`
	UserLow      int64  `json:"userLow"`
	UserHigh     int64  `json:"userHigh"`
	ActionUserID int64  `json:"actionUserId"`
	Status       string `json:"status"`
	CreatedAt    int64  `json:"createdAt"`
}

// FriendItem 好友列表项
type FriendItem struct {
	FriendshipID int64     `json:"friendshipId"`
	User         *UserInfo `json:"user"`
	Since        int64     `json:"since"`
}

// RequestItem 好友申请列表项
type RequestItem struct {
	ID         int64     `json:"id"`
	Status     string    `json:"status"`
	CreatedAt  int64     `json:"createdAt"`
	IsIncoming bool      `json:"isIncoming"`
	User       *UserInfo `json:"user"`
}

// MessageInfo 消息响应项
type MessageInfo struct {
	MessageID   int64  `json:"messageId"`
	SenderID    int64  `json:"senderId"`
	RecipientID int64  `json:"recipientId"`
	Content     string `json:"content"`
	MediaType   string `json:"mediaType"`
	MediaURL    string `json:"mediaUrl,omitempty"`
	IsRead      bool   `json:"isRead"`
	CreatedAt   int64  `json:"createdAt"`
}

// ConversationItem 会话摘要响应项
type ConversationItem struct {
	Counterpart *UserInfo    `json:"counterpart"`
	LastMessage *MessageInfo `json:"lastMessage"`
	UnreadCount int64        `json:"unreadCount"`
}

// FriendListResponse 好友列表响应
type FriendListResponse struct {
	Friends []*FriendItem `json:"friends"`
	Total   int64         `json:"total"`
	Page    int           `json:"page"`
	Pages   int64         `json:"pages"`
}

// MessagePageResponse 消息分页响应
type MessagePageResponse struct {
	Messages []*MessageInfo `json:"messages"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	Pages    int64          `json:"pages"`
}

// RegisterResponse 注册响应，携带访问令牌
type RegisterResponse struct {
	User  *UserInfo `json:"user"`
	Token string    `json:"token"`
}

// UserModelToResponse 将用户Model转换为响应项
func (c *Converter) UserModelToResponse(user *model.User) *UserInfo {
	if user == nil {
		return nil
	}
	return &UserInfo{
		ID:        user.ID,
		Username:  user.Username,
		Nickname:  user.Nickname,
		Avatar:    user.Avatar,
		CreatedAt: user.CreatedAt.Unix(),
	}
}

// FriendshipModelToResponse 将好友关系Model转换为响应项
func (c *Converter) FriendshipModelToResponse(friendship *model.Friendship) *FriendshipInfo {
	if friendship == nil {
		return nil
	}
	return &FriendshipInfo{
		ID:           friendship.ID,
		UserLow:      friendship.UserLow,
		UserHigh:     friendship.UserHigh,
		ActionUserID: friendship.ActionUserID,
		Status:       friendship.Status,
		CreatedAt:    unixOrNow(friendship.CreatedAt),
	}
}

// MessageModelToResponse 将消息Model转换为响应项
func (c *Converter) MessageModelToResponse(msg *model.Message) *MessageInfo {
	if msg == nil {
		return nil
	}
	return &MessageInfo{
		MessageID:   msg.MessageID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Content:     msg.Content,
		MediaType:   msg.MediaType,
		MediaURL:    msg.MediaURL,
		IsRead:      msg.IsRead,
		CreatedAt:   msg.CreatedAt.Unix(),
	}
}

// MessageModelsToResponse 将消息Model列表转换为响应列表
func (c *Converter) MessageModelsToResponse(messages []*model.Message) []*MessageInfo {
	result := make([]*MessageInfo, 0, len(messages))
	for _, msg := range messages {
		if info := c.MessageModelToResponse(msg); info != nil {
			result = append(result, info)
		}
	}
	return result
}

// BuildFriendListResponse 构建好友列表响应
func (c *Converter) BuildFriendListResponse(friends []*model.FriendInfo, total int64, page, pageSize int) *FriendListResponse {
	items := make([]*FriendItem, 0, len(friends))
	for _, f := range friends {
		items = append(items, &FriendItem{
			FriendshipID: f.FriendshipID,
			User:         c.UserModelToResponse(f.User),
			Since:        f.Since.Unix(),
		})
	}
	return &FriendListResponse{
		Friends: items,
		Total:   total,
		Page:    page,
		Pages:   totalPages(total, pageSize),
	}
}

// BuildRequestListResponse 构建好友申请列表响应
func (c *Converter) BuildRequestListResponse(requests []*model.RequestInfo) []*RequestItem {
	items := make([]*RequestItem, 0, len(requests))
	for _, r := range requests {
		items = append(items, &RequestItem{
			ID:         r.ID,
			Status:     r.Status,
			CreatedAt:  r.CreatedAt.Unix(),
			IsIncoming: r.IsIncoming,
			User:       c.UserModelToResponse(r.User),
		})
	}
	return items
}

// BuildMessagePageResponse 构建消息分页响应
func (c *Converter) BuildMessagePageResponse(messages []*model.Message, total int64, page, pageSize int) *MessagePageResponse {
	return &MessagePageResponse{
		Messages: c.MessageModelsToResponse(messages),
		Total:    total,
		Page:     page,
		Pages:    totalPages(total, pageSize),
	}
}

// BuildConversationListResponse 构建会话列表响应
func (c *Converter) BuildConversationListResponse(summaries []*model.ConversationSummary) []*ConversationItem {
	items := make([]*ConversationItem, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, &ConversationItem{
			Counterpart: c.UserModelToResponse(s.Counterpart),
			LastMessage: c.MessageModelToResponse(s.LastMessage),
			UnreadCount: s.UnreadCount,
		})
	}
	return items
}

// BuildRegisterResponse 构建注册响应
func (c *Converter) BuildRegisterResponse(user *model.User, token string) *RegisterResponse {
	return &RegisterResponse{
		User:  c.UserModelToResponse(user),
		Token: token,
	}
}

func totalPages(total int64, pageSize int) int64 {
	if pageSize <= 0 {
		return 0
	}
	return (total + int64(pageSize) - 1) / int64(pageSize)
}

func unixOrNow(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().Unix()
	}
	return t.Unix()
}
