package service

import "errors"

// 领域错误，handler层统一映射为HTTP状态码和稳定错误码
var (
	// 校验类
	ErrSelfRequest    = errors.New("cannot send friend request to yourself")
	ErrSelfMessage    = errors.New("cannot send message to yourself")
	ErrInvalidContent = errors.New("message content is invalid")
	ErrInvalidAction  = errors.New("action must be accept or reject")

	// 资源缺失类
	ErrUserNotFound    = errors.New("user not found")
	ErrRequestNotFound = errors.New("friend request not found")
	ErrMessageNotFound = errors.New("message not found")

	// 权限类
	ErrForbidden     = errors.New("caller is not a party to this record")
	ErrNotAuthorized = errors.New("not authorized to message this user")

	// 冲突类
	ErrAlreadyFriends         = errors.New("users are already friends")
	ErrRequestAlreadySent     = errors.New("friend request already sent")
	ErrRequestAlreadyReceived = errors.New("friend request already received from this user")
	ErrBlocked                = errors.New("relationship is blocked")
	ErrAlreadyProcessed       = errors.New("friend request already processed")
	ErrNotFriends             = errors.New("users are not friends")
	ErrUsernameTaken          = errors.New("username already taken")
)
