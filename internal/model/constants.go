package model

// 好友关系状态
const (
	FriendshipStatusPending  = "pending"
	FriendshipStatusAccepted = "accepted"
	FriendshipStatusBlocked  = "blocked"
)

// 消息媒体类型
const (
	MediaTypeNone     = "none"
	MediaTypeImage    = "image"
	MediaTypeVideo    = "video"
	MediaTypeDocument = "document"
)

// 消息内容长度上限（按rune计）
const MaxContentLength = 2000

// 分页默认值
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Kafka事件主题
const (
	TopicFriendAccepted = "friend.accepted"
	TopicFriendRejected = "friend.rejected"
	TopicFriendRemoved  = "friend.removed"
	TopicMessageSent    = "message.sent"
)

// ValidMediaType 校验媒体类型取值
func ValidMediaType(mediaType string) bool {
	switch mediaType {
	case MediaTypeNone, MediaTypeImage, MediaTypeVideo, MediaTypeDocument:
		return true
	}
	return false
}
