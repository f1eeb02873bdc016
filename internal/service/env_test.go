package service

import (
	"testing"

	"go.uber.org/zap"

	"socialgraph/internal/model"
)

// testEnv wires every service over one memStore.
type testEnv struct {
	store         *memStore
	delivery      *recordingDeliverer
	publisher     *recordingPublisher
	guard         *PrivacyGuard
	follows       *FollowService
	conversations *ConversationService
	notifications *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	users := memUsers{store}
	follows := memFollows{store}
	convs := memConversations{store}
	delivery := newRecordingDeliverer()
	publisher := &recordingPublisher{}
	logger := zap.NewNop()

	guard := NewPrivacyGuard(users, follows, convs)
	notifications := NewNotificationService(memNotifications{store}, users, delivery, logger)

	return &testEnv{
		store:         store,
		delivery:      delivery,
		publisher:     publisher,
		guard:         guard,
		follows:       NewFollowService(follows, users, fakeTransactor{}, guard, notifications, publisher, logger),
		conversations: NewConversationService(convs, memMessages{store}, users, fakeTransactor{}, guard, nil, delivery, logger),
		notifications: notifications,
	}
}

func strPtr(s string) *string { return &s }

// users 1..3: alice public/open, bob private/mutuals, carol public/mutuals
func (e *testEnv) seedUsers() (alice, bob, carol *model.User) {
	alice = e.store.addUser(1, "alice", model.AccountPublic, model.DMOpen)
	bob = e.store.addUser(2, "bob", model.AccountPrivate, model.DMMutuals)
	carol = e.store.addUser(3, "carol", model.AccountPublic, model.DMMutuals)
	return
}
