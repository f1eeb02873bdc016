package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"socialgraph/internal/model"
	"socialgraph/internal/queue"
)

// =============================================================================
// IN-MEMORY STORE
// =============================================================================
//
// memStore implements every repository interface over plain maps so the
// services can be exercised end to end without Postgres. The transactor
// hands fn a nil *sqlx.Tx, which the fakes ignore.

type followKey struct{ follower, followee int64 }

type memStore struct {
	mu            sync.Mutex
	users         map[int64]*model.User
	follows       map[followKey]*model.FollowEdge
	conversations map[uuid.UUID]*model.Conversation
	messages      []*model.Message
	notifications []*model.Notification
	nextMsgID     int64
	nextNotifID   int64
	clock         time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[int64]*model.User),
		follows:       make(map[followKey]*model.FollowEdge),
		conversations: make(map[uuid.UUID]*model.Conversation),
		clock:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp.
func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) addUser(id int64, username string, privacy model.AccountPrivacy, dm model.DMPrivacy) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &model.User{ID: id, Username: username, AccountPrivacy: privacy, DMPrivacy: dm}
	m.users[id] = u
	return u
}

func (m *memStore) user(id int64) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := *m.users[id]
	return &u
}

func (m *memStore) setPrivacy(id int64, privacy model.AccountPrivacy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].AccountPrivacy = privacy
}

func (m *memStore) edgeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.follows)
}

func (m *memStore) conversationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conversations)
}

func (m *memStore) notificationsFor(recipientID int64) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			out = append(out, *n)
		}
	}
	return out
}

type fakeTransactor struct{}

func (fakeTransactor) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

// ---- UserRepository ----

type memUsers struct{ *memStore }

func (r memUsers) GetByID(ctx context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (r memUsers) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]model.UserSummary)
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u.Summary()
		}
	}
	return out, nil
}

func (r memUsers) IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.FollowerCount += delta
	}
	return nil
}

func (r memUsers) IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.FollowingCount += delta
	}
	return nil
}

// ---- FollowRepository ----

type memFollows struct{ *memStore }

func (r memFollows) Get(ctx context.Context, followerID, followeeID int64) (*model.FollowEdge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.follows[followKey{followerID, followeeID}]
	if !ok {
		return nil, model.ErrFollowNotFound
	}
	cp := *e
	return &cp, nil
}

func (r memFollows) CreatePending(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := followKey{followerID, followeeID}
	if _, ok := r.follows[k]; ok {
		return false, nil
	}
	r.follows[k] = &model.FollowEdge{FollowerID: followerID, FolloweeID: followeeID, Status: model.FollowPending, CreatedAt: r.tick()}
	return true, nil
}

func (r memFollows) UpsertApproved(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := followKey{followerID, followeeID}
	if e, ok := r.follows[k]; ok {
		if e.Status == model.FollowApproved {
			return false, nil
		}
		e.Status = model.FollowApproved
		return true, nil
	}
	r.follows[k] = &model.FollowEdge{FollowerID: followerID, FolloweeID: followeeID, Status: model.FollowApproved, CreatedAt: r.tick()}
	return true, nil
}

func (r memFollows) Approve(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.follows[followKey{followerID, followeeID}]
	if !ok || e.Status != model.FollowPending {
		return model.ErrFollowRequestNotFound
	}
	e.Status = model.FollowApproved
	return nil
}

func (r memFollows) DeletePending(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := followKey{followerID, followeeID}
	e, ok := r.follows[k]
	if !ok || e.Status != model.FollowPending {
		return model.ErrFollowRequestNotFound
	}
	delete(r.follows, k)
	return nil
}

func (r memFollows) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (model.FollowStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := followKey{followerID, followeeID}
	e, ok := r.follows[k]
	if !ok {
		return "", model.ErrFollowNotFound
	}
	delete(r.follows, k)
	return e.Status, nil
}

func (r memFollows) IsApproved(ctx context.Context, followerID, followeeID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.follows[followKey{followerID, followeeID}]
	return ok && e.Status == model.FollowApproved, nil
}

func (r memFollows) ListApprovedFollowers(ctx context.Context, userID int64) ([]model.UserSummary, error) {
	return r.listApproved(func(k followKey) (bool, int64) { return k.followee == userID, k.follower })
}

func (r memFollows) ListApprovedFollowing(ctx context.Context, userID int64) ([]model.UserSummary, error) {
	return r.listApproved(func(k followKey) (bool, int64) { return k.follower == userID, k.followee })
}

func (r memFollows) listApproved(match func(followKey) (bool, int64)) ([]model.UserSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.UserSummary{}
	for k, e := range r.follows {
		if ok, other := match(k); ok && e.Status == model.FollowApproved {
			out = append(out, r.users[other].Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username)
	})
	return out, nil
}

func (r memFollows) ListPending(ctx context.Context, followeeID int64) ([]model.FollowRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.FollowRequest{}
	for k, e := range r.follows {
		if k.followee == followeeID && e.Status == model.FollowPending {
			out = append(out, model.FollowRequest{Follower: r.users[k.follower].Summary(), CreatedAt: e.CreatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ---- ConversationRepository ----

type memConversations struct{ *memStore }

func (r memConversations) find(a, b int64) *model.Conversation {
	low, high := model.OrderedPair(a, b)
	for _, c := range r.conversations {
		if c.UserLow == low && c.UserHigh == high {
			return c
		}
	}
	return nil
}

func (r memConversations) FindByParticipants(ctx context.Context, userA, userB int64) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c := r.find(userA, userB); c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, model.ErrConversationNotFound
}

func (r memConversations) Create(ctx context.Context, tx *sqlx.Tx, userA, userB int64) (*model.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c := r.find(userA, userB); c != nil {
		cp := *c
		return &cp, false, nil
	}
	low, high := model.OrderedPair(userA, userB)
	c := &model.Conversation{ID: uuid.New(), UserLow: low, UserHigh: high, CreatedAt: r.tick()}
	r.conversations[c.ID] = c
	cp := *c
	return &cp, true, nil
}

func (r memConversations) GetByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, model.ErrConversationNotFound
	}
	cp := *c
	return &cp, nil
}

func (r memConversations) IsParticipant(ctx context.Context, conversationID uuid.UUID, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[conversationID]
	return ok && c.HasParticipant(userID), nil
}

func (r memConversations) ListForUser(ctx context.Context, userID int64, limit int) ([]model.ConversationSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.ConversationSummary{}
	for _, c := range r.conversations {
		if !c.HasParticipant(userID) {
			continue
		}
		s := model.ConversationSummary{ID: c.ID, OtherUser: r.users[c.Other(userID)].Summary(), CreatedAt: c.CreatedAt}
		for _, m := range r.messages {
			if m.ConversationID != c.ID {
				continue
			}
			cp := *m
			s.LastMessage = &cp
			if m.SenderID != userID && m.ReadAt == nil {
				s.UnreadCount++
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// ---- MessageRepository ----

type memMessages struct{ *memStore }

func (r memMessages) Create(ctx context.Context, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextMsgID++
	msg.ID = r.nextMsgID
	msg.CreatedAt = r.tick()
	cp := *msg
	r.messages = append(r.messages, &cp)
	return nil
}

func (r memMessages) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Message{}
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r memMessages) MarkRead(ctx context.Context, conversationID uuid.UUID, readerID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.messages {
		if m.ConversationID == conversationID && m.SenderID != readerID && m.ReadAt == nil {
			at := r.tick()
			m.ReadAt = &at
			n++
		}
	}
	return n, nil
}

func (r memMessages) MarkReadIDs(ctx context.Context, conversationID uuid.UUID, readerID int64, ids []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	listed := make(map[int64]bool, len(ids))
	for _, id := range ids {
		listed[id] = true
	}
	var n int64
	for _, m := range r.messages {
		if listed[m.ID] && m.ConversationID == conversationID && m.SenderID != readerID && m.ReadAt == nil {
			at := r.tick()
			m.ReadAt = &at
			n++
		}
	}
	return n, nil
}

func (r memMessages) SetLinkPreview(ctx context.Context, messageID int64, preview *model.LinkPreview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == messageID {
			m.LinkPreview = preview
			return nil
		}
	}
	return errors.New("message not found")
}

// ---- NotificationRepository ----

type memNotifications struct{ *memStore }

func (r memNotifications) Create(ctx context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextNotifID++
	n.ID = r.nextNotifID
	n.CreatedAt = r.tick()
	cp := *n
	r.notifications = append(r.notifications, &cp)
	return nil
}

func (r memNotifications) List(ctx context.Context, recipientID int64, limit int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Notification{}
	for i := len(r.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if n := r.notifications[i]; n.RecipientID == recipientID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r memNotifications) MarkAllAsRead(ctx context.Context, recipientID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.RecipientID == recipientID {
			n.IsRead = true
		}
	}
	return nil
}

func (r memNotifications) GetUnreadCount(ctx context.Context, recipientID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// =============================================================================
// DELIVERY AND QUEUE RECORDERS
// =============================================================================

type recordingDeliverer struct {
	mu       sync.Mutex
	messages map[int64][]model.Message
	pings    map[int64]int
}

func newRecordingDeliverer() *recordingDeliverer {
	return &recordingDeliverer{messages: make(map[int64][]model.Message), pings: make(map[int64]int)}
}

func (d *recordingDeliverer) DeliverMessage(recipientID int64, msg *model.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages[recipientID] = append(d.messages[recipientID], *msg)
}

func (d *recordingDeliverer) DeliverNotificationPing(recipientID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pings[recipientID]++
}

func (d *recordingDeliverer) pingCount(recipientID int64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pings[recipientID]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, stream string, event queue.Event) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return "0-1", nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixedPreviewer struct{ preview *model.LinkPreview }

func (f fixedPreviewer) Preview(ctx context.Context, text string) *model.LinkPreview {
	if FirstURL(text) == "" {
		return nil
	}
	return f.preview
}
