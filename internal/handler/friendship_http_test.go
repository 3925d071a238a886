package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"amity-social/internal/converter"
	"amity-social/internal/dao"
	"amity-social/internal/model"
	"amity-social/internal/service"
	"amity-social/pkg/logger"
)

// stubRelationshipDAO 只实现好友列表相关的读路径
type stubRelationshipDAO struct {
	dao.RelationshipDAO
	friendships []*model.Friendship
}

func (s *stubRelationshipDAO) ListAccepted(ctx context.Context, userID int64, page, pageSize int) ([]*model.Friendship, error) {
	return s.friendships, nil
}

func (s *stubRelationshipDAO) CountAccepted(ctx context.Context, userID int64) (int64, error) {
	return int64(len(s.friendships)), nil
}

// stubUserDAO 只实现批量取用户资料
type stubUserDAO struct {
	dao.UserDAO
	users map[int64]*model.User
}

func (s *stubUserDAO) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error) {
	return s.users, nil
}

func TestListFriendsVisibleToAnyCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)

	relationshipDAO := &stubRelationshipDAO{friendships: []*model.Friendship{{
		ID:           10,
		UserLow:      2,
		UserHigh:     3,
		ActionUserID: 3,
		Status:       model.FriendshipStatusAccepted,
		UpdatedAt:    time.Now(),
	}}}
	userDAO := &stubUserDAO{users: map[int64]*model.User{3: {ID: 3, Username: "carol"}}}
	friendshipSvc := service.NewFriendshipService(relationshipDAO, userDAO, nil, nil, logger.GetLogger())
	h := NewHTTPHandler(friendshipSvc, nil, nil, converter.NewConverter(), logger.GetLogger())

	engine := gin.New()
	engine.Use(func(c *gin.Context) { c.Set("userID", int64(1)) })
	h.RegisterRoutes(engine)

	// 用户1查询用户2的好友列表
	req := httptest.NewRequest(http.MethodGet, "/api/v1/friendships/user/2", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp converter.FriendListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(resp.Friends) != 1 || resp.Friends[0].User.ID != 3 {
		t.Errorf("friends = %+v, want carol(3)", resp.Friends)
	}
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}
}
