package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"amity-social/internal/model"
	"amity-social/pkg/logger"
)

// allowAll 放行全部的授权检查，消息测试默认用它
type allowAll struct{}

func (allowAll) IsAuthorizedToMessage(ctx context.Context, userA, userB int64) (bool, error) {
	return true, nil
}

// denyAll 拒绝全部的授权检查
type denyAll struct{}

func (denyAll) IsAuthorizedToMessage(ctx context.Context, userA, userB int64) (bool, error) {
	return false, nil
}

func newTestMessagingService(authorizer Authorizer, userIDs ...int64) (*MessagingService, *fakeMessageDAO, *fakeSearchDAO) {
	messageDAO := newFakeMessageDAO()
	userDAO := newFakeUserDAO(userIDs...)
	searchDAO := newFakeSearchDAO()
	aggregator := NewConversationAggregator(messageDAO, userDAO, logger.GetLogger())
	svc := NewMessagingService(messageDAO, userDAO, authorizer, aggregator, searchDAO, nil, logger.GetLogger())
	return svc, messageDAO, searchDAO
}

func TestSendValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestMessagingService(allowAll{}, 1, 2)

	tests := []struct {
		name      string
		sender    int64
		recipient int64
		content   string
		mediaType string
		mediaURL  string
		wantErr   error
	}{
		{"self message", 1, 1, "hi", "", "", ErrSelfMessage},
		{"unknown recipient", 1, 999, "hi", "", "", ErrUserNotFound},
		{"empty content", 1, 2, "", "", "", ErrInvalidContent},
		{"whitespace content", 1, 2, "   \n\t ", "", "", ErrInvalidContent},
		{"oversized content", 1, 2, strings.Repeat("字", model.MaxContentLength+1), "", "", ErrInvalidContent},
		{"bad media type", 1, 2, "hi", "audio", "http://x/a", ErrInvalidContent},
		{"media type without url", 1, 2, "hi", model.MediaTypeImage, "", ErrInvalidContent},
		{"url without media type", 1, 2, "hi", "", "http://x/a", ErrInvalidContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Send(ctx, tt.sender, tt.recipient, tt.content, tt.mediaType, tt.mediaURL); err != tt.wantErr {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	// 内容长度按rune计，恰好到上限的多字节内容合法
	if _, err := svc.Send(ctx, 1, 2, strings.Repeat("字", model.MaxContentLength), "", ""); err != nil {
		t.Errorf("max-length content rejected: %v", err)
	}
}

func TestSendRequiresFriendship(t *testing.T) {
	ctx := context.Background()
	svc, messageDAO, _ := newTestMessagingService(denyAll{}, 1, 2)

	if _, err := svc.Send(ctx, 1, 2, "hello", "", ""); err != ErrNotAuthorized {
		t.Errorf("got %v, want ErrNotAuthorized", err)
	}
	if count, _ := messageDAO.CountBetween(ctx, 1, 2); count != 0 {
		t.Error("unauthorized send must not persist a message")
	}
}

func TestSendRoundTripFidelity(t *testing.T) {
	ctx := context.Background()
	svc, _, searchDAO := newTestMessagingService(allowAll{}, 1, 2)

	sent, err := svc.Send(ctx, 1, 2, "photo from 北京", model.MediaTypeImage, "https://cdn/x.jpg")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if sent.IsRead {
		t.Error("new message must start unread")
	}
	if sent.PairKey != "1:2" {
		t.Errorf("pairKey = %s, want 1:2", sent.PairKey)
	}

	messages, _, err := svc.FetchThread(ctx, 2, 1, 1, 20)
	if err != nil {
		t.Fatalf("FetchThread failed: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(messages))
	}
	got := messages[0]
	if got.Content != "photo from 北京" || got.MediaType != model.MediaTypeImage || got.MediaURL != "https://cdn/x.jpg" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.SenderID != 1 || got.RecipientID != 2 {
		t.Errorf("participants mismatch: sender=%d recipient=%d", got.SenderID, got.RecipientID)
	}

	if len(searchDAO.indexed) != 1 || searchDAO.indexed[0] != sent.MessageID {
		t.Error("sent message should be indexed")
	}
}

func TestFetchThreadMarksRead(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestMessagingService(allowAll{}, 1, 2)

	for i := 0; i < 3; i++ {
		if _, err := svc.Send(ctx, 1, 2, "hello", "", ""); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	unread, _ := svc.UnreadCount(ctx, 2)
	if unread != 3 {
		t.Fatalf("unread = %d, want 3", unread)
	}

	// 读取即置已读
	if _, _, err := svc.FetchThread(ctx, 2, 1, 1, 20); err != nil {
		t.Fatalf("FetchThread failed: %v", err)
	}

	unread, _ = svc.UnreadCount(ctx, 2)
	if unread != 0 {
		t.Errorf("unread after fetch = %d, want 0", unread)
	}

	// 发送方的未读数不受影响
	if _, err := svc.Send(ctx, 2, 1, "reply", "", ""); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	unread, _ = svc.UnreadCount(ctx, 1)
	if unread != 1 {
		t.Errorf("sender unread = %d, want 1", unread)
	}
}

// markReadFailDAO 模拟置已读阶段的存储故障
type markReadFailDAO struct {
	*fakeMessageDAO
	markErr error
}

func (d *markReadFailDAO) MarkReadBulk(ctx context.Context, senderID, recipientID int64) (int64, error) {
	if d.markErr != nil {
		return 0, d.markErr
	}
	return d.fakeMessageDAO.MarkReadBulk(ctx, senderID, recipientID)
}

func TestFetchThreadSurfacesMarkReadFailure(t *testing.T) {
	ctx := context.Background()
	messageDAO := &markReadFailDAO{fakeMessageDAO: newFakeMessageDAO()}
	userDAO := newFakeUserDAO(1, 2)
	aggregator := NewConversationAggregator(messageDAO, userDAO, logger.GetLogger())
	svc := NewMessagingService(messageDAO, userDAO, allowAll{}, aggregator, nil, nil, logger.GetLogger())

	if _, err := svc.Send(ctx, 1, 2, "hello", "", ""); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// 置已读失败算存储错误，不能静默返回成功
	messageDAO.markErr = errors.New("mongo: server selection timeout")
	if _, _, err := svc.FetchThread(ctx, 2, 1, 1, 20); err == nil {
		t.Fatal("FetchThread should fail when marking read fails")
	}
	if unread, _ := svc.UnreadCount(ctx, 2); unread != 1 {
		t.Errorf("unread = %d, want 1 (mark read never applied)", unread)
	}

	messageDAO.markErr = nil
	if _, _, err := svc.FetchThread(ctx, 2, 1, 1, 20); err != nil {
		t.Fatalf("FetchThread failed: %v", err)
	}
	if unread, _ := svc.UnreadCount(ctx, 2); unread != 0 {
		t.Errorf("unread after retry = %d, want 0", unread)
	}
}

func TestFetchThreadChronologicalPages(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestMessagingService(allowAll{}, 1, 2)

	contents := []string{"m1", "m2", "m3", "m4", "m5"}
	for _, c := range contents {
		if _, err := svc.Send(ctx, 1, 2, c, "", ""); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	// 第一页是最近的两条，页内时间升序
	messages, total, err := svc.FetchThread(ctx, 2, 1, 1, 2)
	if err != nil {
		t.Fatalf("FetchThread failed: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(messages) != 2 || messages[0].Content != "m4" || messages[1].Content != "m5" {
		t.Errorf("page 1 = %v", contentsOf(messages))
	}

	messages, _, _ = svc.FetchThread(ctx, 2, 1, 2, 2)
	if len(messages) != 2 || messages[0].Content != "m2" || messages[1].Content != "m3" {
		t.Errorf("page 2 = %v", contentsOf(messages))
	}

	messages, _, _ = svc.FetchThread(ctx, 2, 1, 3, 2)
	if len(messages) != 1 || messages[0].Content != "m1" {
		t.Errorf("page 3 = %v", contentsOf(messages))
	}
}

func contentsOf(messages []*model.Message) []string {
	result := make([]string, 0, len(messages))
	for _, msg := range messages {
		result = append(result, msg.Content)
	}
	return result
}

func TestMarkThreadRead(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestMessagingService(allowAll{}, 1, 2)

	svc.Send(ctx, 1, 2, "a", "", "")
	svc.Send(ctx, 1, 2, "b", "", "")

	marked, err := svc.MarkThreadRead(ctx, 2, 1)
	if err != nil {
		t.Fatalf("MarkThreadRead failed: %v", err)
	}
	if marked != 2 {
		t.Errorf("marked = %d, want 2", marked)
	}

	// 再标一次没有可改的
	marked, _ = svc.MarkThreadRead(ctx, 2, 1)
	if marked != 0 {
		t.Errorf("second mark = %d, want 0", marked)
	}
}

func TestDeleteMessage(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestMessagingService(allowAll{}, 1, 2, 3)

	sent, _ := svc.Send(ctx, 1, 2, "secret", "", "")

	if err := svc.DeleteMessage(ctx, 3, sent.MessageID); err != ErrForbidden {
		t.Errorf("third party delete: got %v, want ErrForbidden", err)
	}
	if err := svc.DeleteMessage(ctx, 2, sent.MessageID); err != nil {
		t.Errorf("recipient delete failed: %v", err)
	}
	if err := svc.DeleteMessage(ctx, 2, sent.MessageID); err != ErrMessageNotFound {
		t.Errorf("double delete: got %v, want ErrMessageNotFound", err)
	}
}

func TestDeleteConversation(t *testing.T) {
	ctx := context.Background()
	svc, _, searchDAO := newTestMessagingService(allowAll{}, 1, 2, 3)

	svc.Send(ctx, 1, 2, "a", "", "")
	svc.Send(ctx, 2, 1, "b", "", "")
	svc.Send(ctx, 1, 3, "c", "", "")

	deleted, err := svc.DeleteConversation(ctx, 1, 2)
	if err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	// 其他会话不受影响
	if count, _ := svc.UnreadCount(ctx, 3); count != 1 {
		t.Error("unrelated conversation should survive")
	}

	if len(searchDAO.deleted) != 1 || searchDAO.deleted[0] != "1:2" {
		t.Errorf("search thread delete = %v, want [1:2]", searchDAO.deleted)
	}
}

func TestSearchMessagesDegraded(t *testing.T) {
	ctx := context.Background()
	messageDAO := newFakeMessageDAO()
	userDAO := newFakeUserDAO(1, 2)
	aggregator := NewConversationAggregator(messageDAO, userDAO, logger.GetLogger())
	svc := NewMessagingService(messageDAO, userDAO, allowAll{}, aggregator, nil, nil, logger.GetLogger())

	if _, err := svc.SearchMessages(ctx, 1, "  ", 10); err != ErrInvalidContent {
		t.Errorf("blank query: got %v, want ErrInvalidContent", err)
	}

	results, err := svc.SearchMessages(ctx, 1, "hello", 10)
	if err != nil {
		t.Fatalf("degraded search failed: %v", err)
	}
	if len(results) != 0 {
		t.Error("degraded search should return empty results")
	}
}
