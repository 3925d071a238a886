package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"amity-social/internal/dao"
	"amity-social/internal/model"
)

// fakeRelationshipDAO 内存版好友关系存储，行为对齐PostgreSQL实现：
// 用户对唯一索引、status谓词上的条件变更
type fakeRelationshipDAO struct {
	mu      sync.Mutex
	records map[int64]*model.Friendship
	byPair  map[string]int64
}

func newFakeRelationshipDAO() *fakeRelationshipDAO {
	return &fakeRelationshipDAO{
		records: make(map[int64]*model.Friendship),
		byPair:  make(map[string]int64),
	}
}

func (f *fakeRelationshipDAO) Create(ctx context.Context, friendship *model.Friendship) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := fmt.Sprintf("%d:%d", friendship.UserLow, friendship.UserHigh)
	if _, exists := f.byPair[key]; exists {
		return dao.ErrDuplicatePair
	}

	cp := *friendship
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.UpdatedAt = cp.CreatedAt
	f.records[cp.ID] = &cp
	f.byPair[key] = cp.ID
	return nil
}

func (f *fakeRelationshipDAO) GetByPair(ctx context.Context, userA, userB int64) (*model.Friendship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	low, high := model.CanonicalPair(userA, userB)
	id, ok := f.byPair[fmt.Sprintf("%d:%d", low, high)]
	if !ok {
		return nil, nil
	}
	cp := *f.records[id]
	return &cp, nil
}

func (f *fakeRelationshipDAO) GetByID(ctx context.Context, id int64) (*model.Friendship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	cp := *record
	return &cp, nil
}

func (f *fakeRelationshipDAO) UpdateStatusIfPending(ctx context.Context, id int64, status string, actionUserID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.records[id]
	if !ok || record.Status != model.FriendshipStatusPending {
		return false, nil
	}
	record.Status = status
	record.ActionUserID = actionUserID
	record.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeRelationshipDAO) DeleteIfPending(ctx context.Context, id int64) (bool, error) {
	return f.deleteIfStatus(id, model.FriendshipStatusPending)
}

func (f *fakeRelationshipDAO) DeleteIfAccepted(ctx context.Context, id int64) (bool, error) {
	return f.deleteIfStatus(id, model.FriendshipStatusAccepted)
}

func (f *fakeRelationshipDAO) deleteIfStatus(id int64, status string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.records[id]
	if !ok || record.Status != status {
		return false, nil
	}
	delete(f.records, id)
	delete(f.byPair, fmt.Sprintf("%d:%d", record.UserLow, record.UserHigh))
	return true, nil
}

func (f *fakeRelationshipDAO) ListAccepted(ctx context.Context, userID int64, page, pageSize int) ([]*model.Friendship, error) {
	all := f.collect(userID, model.FriendshipStatusAccepted)
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })

	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (f *fakeRelationshipDAO) CountAccepted(ctx context.Context, userID int64) (int64, error) {
	return int64(len(f.collect(userID, model.FriendshipStatusAccepted))), nil
}

func (f *fakeRelationshipDAO) ListPending(ctx context.Context, userID int64) ([]*model.Friendship, error) {
	all := f.collect(userID, model.FriendshipStatusPending)
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all, nil
}

func (f *fakeRelationshipDAO) collect(userID int64, status string) []*model.Friendship {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []*model.Friendship
	for _, record := range f.records {
		if record.Status == status && record.Involves(userID) {
			cp := *record
			result = append(result, &cp)
		}
	}
	return result
}

// fakeUserDAO 内存版用户存储
type fakeUserDAO struct {
	mu    sync.Mutex
	users map[int64]*model.User
}

func newFakeUserDAO(ids ...int64) *fakeUserDAO {
	f := &fakeUserDAO{users: make(map[int64]*model.User)}
	for _, id := range ids {
		f.users[id] = &model.User{ID: id, Username: fmt.Sprintf("user%d", id), Nickname: fmt.Sprintf("User %d", id)}
	}
	return f
}

func (f *fakeUserDAO) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.users {
		if existing.Username == user.Username {
			return dao.ErrDuplicateUsername
		}
	}
	cp := *user
	f.users[cp.ID] = &cp
	return nil
}

func (f *fakeUserDAO) GetByID(ctx context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

func (f *fakeUserDAO) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserDAO) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make(map[int64]*model.User, len(ids))
	for _, id := range ids {
		if user, ok := f.users[id]; ok {
			cp := *user
			result[id] = &cp
		}
	}
	return result, nil
}

// fakeFriendSet 内存版好友集合投影
type fakeFriendSet struct {
	mu   sync.Mutex
	sets map[int64]map[int64]bool
}

func newFakeFriendSet() *fakeFriendSet {
	return &fakeFriendSet{sets: make(map[int64]map[int64]bool)}
}

func (f *fakeFriendSet) Add(ctx context.Context, userID, friendID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.add(userID, friendID)
	f.add(friendID, userID)
	return nil
}

func (f *fakeFriendSet) add(userID, friendID int64) {
	if f.sets[userID] == nil {
		f.sets[userID] = make(map[int64]bool)
	}
	f.sets[userID][friendID] = true
}

func (f *fakeFriendSet) Remove(ctx context.Context, userID, friendID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sets[userID], friendID)
	delete(f.sets[friendID], userID)
	return nil
}

func (f *fakeFriendSet) Contains(ctx context.Context, userID, friendID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets[userID][friendID], nil
}

func (f *fakeFriendSet) Members(ctx context.Context, userID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var members []int64
	for id := range f.sets[userID] {
		members = append(members, id)
	}
	return members, nil
}

// fakeMessageDAO 内存版消息存储，排序与翻页行为对齐MongoDB实现
type fakeMessageDAO struct {
	mu       sync.Mutex
	messages []*model.Message
}

func newFakeMessageDAO() *fakeMessageDAO {
	return &fakeMessageDAO{}
}

func (f *fakeMessageDAO) Insert(ctx context.Context, msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *msg
	f.messages = append(f.messages, &cp)
	return nil
}

func (f *fakeMessageDAO) GetByID(ctx context.Context, messageID int64) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, msg := range f.messages {
		if msg.MessageID == messageID {
			cp := *msg
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeMessageDAO) between(userA, userB int64) []*model.Message {
	key := model.PairKey(userA, userB)
	var result []*model.Message
	for _, msg := range f.messages {
		if msg.PairKey == key {
			cp := *msg
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].MessageID > result[j].MessageID
	})
	return result
}

func (f *fakeMessageDAO) FindBetween(ctx context.Context, userA, userB int64, page, pageSize int) ([]*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all := f.between(userA, userB)
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (f *fakeMessageDAO) CountBetween(ctx context.Context, userA, userB int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.between(userA, userB))), nil
}

func (f *fakeMessageDAO) LastMessageBetween(ctx context.Context, userA, userB int64) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all := f.between(userA, userB)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (f *fakeMessageDAO) MarkReadBulk(ctx context.Context, senderID, recipientID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var modified int64
	for _, msg := range f.messages {
		if msg.SenderID == senderID && msg.RecipientID == recipientID && !msg.IsRead {
			msg.IsRead = true
			modified++
		}
	}
	return modified, nil
}

func (f *fakeMessageDAO) CountUnreadForRecipient(ctx context.Context, recipientID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, msg := range f.messages {
		if msg.RecipientID == recipientID && !msg.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeMessageDAO) CountUnreadFrom(ctx context.Context, recipientID, senderID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, msg := range f.messages {
		if msg.RecipientID == recipientID && msg.SenderID == senderID && !msg.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeMessageDAO) DeleteByID(ctx context.Context, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, msg := range f.messages {
		if msg.MessageID == messageID {
			f.messages = append(f.messages[:i], f.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeMessageDAO) DeleteBetween(ctx context.Context, userA, userB int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := model.PairKey(userA, userB)
	var kept []*model.Message
	var deleted int64
	for _, msg := range f.messages {
		if msg.PairKey == key {
			deleted++
			continue
		}
		kept = append(kept, msg)
	}
	f.messages = kept
	return deleted, nil
}

func (f *fakeMessageDAO) DistinctCounterparts(ctx context.Context, userID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[int64]bool)
	var result []int64
	for _, msg := range f.messages {
		var other int64
		switch userID {
		case msg.SenderID:
			other = msg.RecipientID
		case msg.RecipientID:
			other = msg.SenderID
		default:
			continue
		}
		if !seen[other] {
			seen[other] = true
			result = append(result, other)
		}
	}
	return result, nil
}

func (f *fakeMessageDAO) EnsureIndexes(ctx context.Context) error {
	return nil
}

// fakeSearchDAO 记录索引调用，便于断言尽力而为链路
type fakeSearchDAO struct {
	mu      sync.Mutex
	indexed []int64
	deleted []string
}

func newFakeSearchDAO() *fakeSearchDAO {
	return &fakeSearchDAO{}
}

func (f *fakeSearchDAO) IndexMessage(ctx context.Context, msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, msg.MessageID)
	return nil
}

func (f *fakeSearchDAO) DeleteThread(ctx context.Context, pairKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, pairKey)
	return nil
}

func (f *fakeSearchDAO) SearchMessages(ctx context.Context, userID int64, query string, limit int) ([]*model.Message, error) {
	return nil, nil
}
