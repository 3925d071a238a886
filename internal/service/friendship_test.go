package service

import (
	"context"
	"errors"
	"os"
	"testing"

	"amity-social/internal/model"
	"amity-social/pkg/logger"
	"amity-social/pkg/snowflake"
)

func TestMain(m *testing.M) {
	if err := snowflake.InitGlobalSnowflake(1); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestFriendshipService(userIDs ...int64) (*FriendshipService, *fakeRelationshipDAO, *fakeFriendSet) {
	relationshipDAO := newFakeRelationshipDAO()
	friendSet := newFakeFriendSet()
	svc := NewFriendshipService(relationshipDAO, newFakeUserDAO(userIDs...), friendSet, nil, logger.GetLogger())
	return svc, relationshipDAO, friendSet
}

func TestSendRequestValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestFriendshipService(1, 2)

	if _, err := svc.SendRequest(ctx, 1, 1); err != ErrSelfRequest {
		t.Errorf("self request: got %v, want ErrSelfRequest", err)
	}
	if _, err := svc.SendRequest(ctx, 1, 999); err != ErrUserNotFound {
		t.Errorf("unknown target: got %v, want ErrUserNotFound", err)
	}
}

func TestSendRequestCreatesPending(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestFriendshipService(1, 2)

	friendship, err := svc.SendRequest(ctx, 1, 2)
	if err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}
	if friendship.Status != model.FriendshipStatusPending {
		t.Errorf("status = %s, want pending", friendship.Status)
	}
	if friendship.ActionUserID != 1 {
		t.Errorf("actionUserID = %d, want 1 (requester)", friendship.ActionUserID)
	}
	if friendship.UserLow != 1 || friendship.UserHigh != 2 {
		t.Errorf("pair = (%d, %d), want canonical (1, 2)", friendship.UserLow, friendship.UserHigh)
	}
}

func TestSendRequestConflicts(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestFriendshipService(1, 2)

	if _, err := svc.SendRequest(ctx, 1, 2); err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	// 重复发送
	if _, err := svc.SendRequest(ctx, 1, 2); err != ErrRequestAlreadySent {
		t.Errorf("duplicate request: got %v, want ErrRequestAlreadySent", err)
	}

	// 交叉请求：对方已有我发来的申请
	if _, err := svc.SendRequest(ctx, 2, 1); err != ErrRequestAlreadyReceived {
		t.Errorf("crossed request: got %v, want ErrRequestAlreadyReceived", err)
	}
}

func TestSendRequestAfterAccept(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestFriendshipService(1, 2)

	friendship, _ := svc.SendRequest(ctx, 1, 2)
	if _, err := svc.Respond(ctx, 2, friendship.ID, true); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if _, err := svc.SendRequest(ctx, 1, 2); err != ErrAlreadyFriends {
		t.Errorf("request between friends: got %v, want ErrAlreadyFriends", err)
	}
	if _, err := svc.SendRequest(ctx, 2, 1); err != ErrAlreadyFriends {
		t.Errorf("reverse request between friends: got %v, want ErrAlreadyFriends", err)
	}
}

func TestRespondAccept(t *testing.T) {
	ctx := context.Background()
	svc, _, friendSet := newTestFriendshipService(1, 2)

	friendship, _ := svc.SendRequest(ctx, 1, 2)
	accepted, err := svc.Respond(ctx, 2, friendship.ID, true)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if accepted.Status != model.FriendshipStatusAccepted {
		t.Errorf("status = %s, want accepted", accepted.Status)
	}
	if accepted.ActionUserID != 2 {
		t.Errorf("actionUserID = %d, want 2 (responder)", accepted.ActionUserID)
	}

	// 投影双向生效
	for _, pair := range [][2]int64{{1, 2}, {2, 1}} {
		in, _ := friendSet.Contains(ctx, pair[0], pair[1])
		if !in {
			t.Errorf("friend set should contain %d->%d", pair[0], pair[1])
		}
	}
}

func TestRespondOneShot(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestFriendshipService(1, 2)

	friendship, _ := svc.SendRequest(ctx, 1, 2)
	if _, err := svc.Respond(ctx, 2, friendship.ID, true); err != nil {
		t.Fatalf("first accept failed: %v", err)
	}

	// 第二次处理必须失败，不管是accept还是reject
	if _, err := svc.Respond(ctx, 2, friendship.ID, true); err != ErrAlreadyProcessed {
		t.Errorf("double accept: got %v, want ErrAlreadyProcessed", err)
	}
	if _, err := svc.Respond(ctx, 2, friendship.ID, false); err != ErrAlreadyProcessed {
		t.Errorf("reject after accept: got %v, want ErrAlreadyProcessed", err)
	}
}

func TestRespondReject(t *testing.T) {
	ctx := context.Background()
	svc, relationshipDAO, _ := newTestFriendshipService(1, 2)

	friendship, _ := svc.SendRequest(ctx, 1, 2)
	if _, err := svc.Respond(ctx, 2, friendship.ID, false); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	record, _ := relationshipDAO.GetByID(ctx, friendship.ID)
	if record != nil {
		t.Error("rejected request should be deleted")
	}

	// 拒绝后可重新发起
	if _, err := svc.SendRequest(ctx, 1, 2); err != nil {
		t.Errorf("resend after reject failed: %v", err)
	}
}

func TestRespondForbidden(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestFriendshipService(1, 2, 3)

	friendship, _ := svc.SendRequest(ctx, 1, 2)
	if _, err := svc.Respond(ctx, 3, friendship.ID, true); err != ErrForbidden {
		t.Errorf("third party respond: got %v, want ErrForbidden", err)
	}
	if _, err := svc.Respond(ctx, 2, 99999, true); err != ErrRequestNotFound {
		t.Errorf("unknown request: got %v, want ErrRequestNotFound", err)
	}
}

func TestCancelRequest(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestFriendshipService(1, 2)

	friendship, _ := svc.SendRequest(ctx, 1, 2)

	// 接收方无权取消
	if err := svc.Cancel(ctx, 2, friendship.ID); err != ErrForbidden {
		t.Errorf("recipient cancel: got %v, want ErrForbidden", err)
	}

	if err := svc.Cancel(ctx, 1, friendship.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	// 取消后对方可以反向发起
	if _, err := svc.SendRequest(ctx, 2, 1); err != nil {
		t.Errorf("reverse request after cancel failed: %v", err)
	}
}

func TestRemoveFriend(t *testing.T) {
	ctx := context.Background()
	svc, _, friendSet := newTestFriendshipService(1, 2, 3)

	friendship, _ := svc.SendRequest(ctx, 1, 2)
	svc.Respond(ctx, 2, friendship.ID, true)

	if err := svc.Remove(ctx, 3, friendship.ID); err != ErrForbidden {
		t.Errorf("third party remove: got %v, want ErrForbidden", err)
	}

	if err := svc.Remove(ctx, 1, friendship.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	in, _ := friendSet.Contains(ctx, 1, 2)
	if in {
		t.Error("friend set should not contain removed friend")
	}

	if err := svc.Remove(ctx, 1, friendship.ID); err != ErrRequestNotFound {
		t.Errorf("double remove: got %v, want ErrRequestNotFound", err)
	}
}

// flakyFriendSet 模拟Redis故障，Remove可按需注入错误
type flakyFriendSet struct {
	*fakeFriendSet
	removeErr error
}

func (f *flakyFriendSet) Remove(ctx context.Context, userID, friendID int64) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.fakeFriendSet.Remove(ctx, userID, friendID)
}

func TestRemoveProjectionFailureKeepsAuthorizationConsistent(t *testing.T) {
	ctx := context.Background()
	relationshipDAO := newFakeRelationshipDAO()
	friendSet := &flakyFriendSet{fakeFriendSet: newFakeFriendSet()}
	svc := NewFriendshipService(relationshipDAO, newFakeUserDAO(1, 2), friendSet, nil, logger.GetLogger())

	friendship, _ := svc.SendRequest(ctx, 1, 2)
	if _, err := svc.Respond(ctx, 2, friendship.ID, true); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	friendSet.removeErr = errors.New("redis: connection refused")
	if err := svc.Remove(ctx, 1, friendship.ID); err == nil {
		t.Fatal("remove should fail when projection cannot be cleared")
	}

	// 投影清除失败时权威记录必须原样保留，双方仍是好友
	record, _ := relationshipDAO.GetByID(ctx, friendship.ID)
	if record == nil || record.Status != model.FriendshipStatusAccepted {
		t.Fatal("friendship record should survive a failed remove")
	}
	if authorized, _ := svc.IsAuthorizedToMessage(ctx, 1, 2); !authorized {
		t.Error("still friends after failed remove, should be authorized")
	}

	friendSet.removeErr = nil
	if err := svc.Remove(ctx, 1, friendship.ID); err != nil {
		t.Fatalf("retry remove failed: %v", err)
	}
	if authorized, _ := svc.IsAuthorizedToMessage(ctx, 1, 2); authorized {
		t.Error("removed friend should not be authorized to message")
	}
	if in, _ := friendSet.Contains(ctx, 1, 2); in {
		t.Error("friend set should be cleared after remove")
	}
}

func TestRemovePendingNotFriends(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestFriendshipService(1, 2)

	friendship, _ := svc.SendRequest(ctx, 1, 2)
	if err := svc.Remove(ctx, 1, friendship.ID); err != ErrNotFriends {
		t.Errorf("remove pending: got %v, want ErrNotFriends", err)
	}
}

func TestFriendSetIdempotent(t *testing.T) {
	ctx := context.Background()
	friendSet := newFakeFriendSet()

	// 重复投递无害
	friendSet.Add(ctx, 1, 2)
	friendSet.Add(ctx, 1, 2)
	in, _ := friendSet.Contains(ctx, 2, 1)
	if !in {
		t.Error("set should contain friend after duplicate adds")
	}

	friendSet.Remove(ctx, 2, 1)
	friendSet.Remove(ctx, 2, 1)
	in, _ = friendSet.Contains(ctx, 1, 2)
	if in {
		t.Error("set should not contain friend after duplicate removes")
	}
}

func TestIsAuthorizedToMessage(t *testing.T) {
	ctx := context.Background()
	svc, _, friendSet := newTestFriendshipService(1, 2)

	authorized, err := svc.IsAuthorizedToMessage(ctx, 1, 2)
	if err != nil || authorized {
		t.Errorf("strangers: got (%v, %v), want (false, nil)", authorized, err)
	}

	friendship, _ := svc.SendRequest(ctx, 1, 2)

	// pending不算好友
	authorized, _ = svc.IsAuthorizedToMessage(ctx, 1, 2)
	if authorized {
		t.Error("pending relationship should not authorize messaging")
	}

	svc.Respond(ctx, 2, friendship.ID, true)
	authorized, _ = svc.IsAuthorizedToMessage(ctx, 1, 2)
	if !authorized {
		t.Error("accepted relationship should authorize messaging")
	}

	// 投影丢失时回源DB并自愈
	friendSet.Remove(ctx, 1, 2)
	authorized, _ = svc.IsAuthorizedToMessage(ctx, 1, 2)
	if !authorized {
		t.Error("DB fallback should authorize messaging")
	}
	in, _ := friendSet.Contains(ctx, 1, 2)
	if !in {
		t.Error("projection should be repaired after DB fallback")
	}
}

func TestListFriendsAndRequests(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestFriendshipService(1, 2, 3, 4)

	f2, _ := svc.SendRequest(ctx, 1, 2)
	svc.Respond(ctx, 2, f2.ID, true)
	svc.SendRequest(ctx, 1, 3) // 1发出，待处理
	svc.SendRequest(ctx, 4, 1) // 1收到，待处理

	friends, total, err := svc.ListFriends(ctx, 1, 1, 20)
	if err != nil {
		t.Fatalf("ListFriends failed: %v", err)
	}
	if total != 1 || len(friends) != 1 {
		t.Fatalf("friends = %d (total %d), want 1", len(friends), total)
	}
	if friends[0].User == nil || friends[0].User.ID != 2 {
		t.Error("friend profile should be attached")
	}

	requests, err := svc.ListRequests(ctx, 1)
	if err != nil {
		t.Fatalf("ListRequests failed: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(requests))
	}
	for _, r := range requests {
		switch r.User.ID {
		case 3:
			if r.IsIncoming {
				t.Error("request to user 3 should be outgoing")
			}
		case 4:
			if !r.IsIncoming {
				t.Error("request from user 4 should be incoming")
			}
		default:
			t.Errorf("unexpected counterpart %d", r.User.ID)
		}
	}
}
