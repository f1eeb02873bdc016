package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialgraph/internal/model"
	"socialgraph/internal/queue"
)

func TestRequestFollow_PrivateAccountIsPending(t *testing.T) {
	env := newTestEnv(t)
	alice, bob, _ := env.seedUsers()
	ctx := context.Background()

	status, err := env.follows.RequestFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowPending, status)

	canView, err := env.guard.CanViewContent(ctx, alice.ID, env.store.user(bob.ID))
	require.NoError(t, err)
	assert.False(t, canView, "pending edge must not grant visibility")

	require.NoError(t, env.follows.ApproveFollow(ctx, bob.ID, alice.ID))

	canView, err = env.guard.CanViewContent(ctx, alice.ID, env.store.user(bob.ID))
	require.NoError(t, err)
	assert.True(t, canView)
}

func TestRequestFollow_PublicAccountIsApproved(t *testing.T) {
	env := newTestEnv(t)
	alice, bob, _ := env.seedUsers()
	ctx := context.Background()

	status, err := env.follows.RequestFollow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowApproved, status)

	canView, err := env.guard.CanViewContent(ctx, bob.ID, env.store.user(alice.ID))
	require.NoError(t, err)
	assert.True(t, canView)

	assert.Equal(t, 1, env.store.user(alice.ID).FollowerCount)
	assert.Equal(t, 1, env.store.user(bob.ID).FollowingCount)
	assert.Equal(t, []string{queue.EventUserFollowed}, env.publisher.types())
}

func TestRequestFollow_Self(t *testing.T) {
	env := newTestEnv(t)
	alice, _, _ := env.seedUsers()

	_, err := env.follows.RequestFollow(context.Background(), alice.ID, alice.ID)
	assert.ErrorIs(t, err, model.ErrSelfFollow)
	assert.Equal(t, model.KindAuthorization, model.KindOf(err))
	assert.Zero(t, env.store.edgeCount())
}

func TestRequestFollow_UnknownFollowee(t *testing.T) {
	env := newTestEnv(t)
	alice, _, _ := env.seedUsers()

	_, err := env.follows.RequestFollow(context.Background(), alice.ID, 99)
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestRequestFollow_PendingIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	alice, bob, _ := env.seedUsers()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		status, err := env.follows.RequestFollow(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, model.FollowPending, status)
	}

	assert.Equal(t, 1, env.store.edgeCount())
	requests := env.store.notificationsFor(bob.ID)
	require.Len(t, requests, 1, "follow_request is only sent on insertion")
	assert.Equal(t, model.NotificationTypeFollowRequest, requests[0].Type)
	assert.Zero(t, env.store.user(bob.ID).FollowerCount)
}

func TestRequestFollow_ApprovedRefollowIsNoop(t *testing.T) {
	env := newTestEnv(t)
	alice, bob, _ := env.seedUsers()
	ctx := context.Background()

	_, err := env.follows.RequestFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, env.follows.ApproveFollow(ctx, bob.ID, alice.ID))

	status, err := env.follows.RequestFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowApproved, status)
	assert.Equal(t, 1, env.store.edgeCount())
	assert.Equal(t, 1, env.store.user(bob.ID).FollowerCount)
}

func TestRequestFollow_PublicPromotesPendingEdge(t *testing.T) {
	env := newTestEnv(t)
	alice, bob, _ := env.seedUsers()
	ctx := context.Background()

	// bob goes private after alice's request, then public again.
	_, err := env.follows.RequestFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	env.store.setPrivacy(bob.ID, model.AccountPublic)

	status, err := env.follows.RequestFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowApproved, status)
	assert.Equal(t, 1, env.store.edgeCount())
	assert.Equal(t, 1, env.store.user(bob.ID).FollowerCount)
}

func TestRequestFollow_PublicNotifiesEveryTime(t *testing.T) {
	env := newTestEnv(t)
	alice, bob, _ := env.seedUsers()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := env.follows.RequestFollow(ctx, bob.ID, alice.ID)
		require.NoError(t, err)
	}

	notifs := env.store.notificationsFor(alice.ID)
	assert.Len(t, notifs, 2)
	assert.Equal(t, 2, env.delivery.pingCount(alice.ID))
	assert.Equal(t, 1, env.store.user(alice.ID).FollowerCount, "counts move only on the approved transition")
}

func TestApproveFollow(t *testing.T) {
	env := newTestEnv(t)
	alice, bob, _ := env.seedUsers()
	ctx := context.Background()

	t.Run("no pending request", func(t *testing.T) {
		err := env.follows.ApproveFollow(ctx, bob.ID, alice.ID)
		assert.ErrorIs(t, err, model.ErrFollowRequestNotFound)
		assert.Equal(t, model.KindNotFound, model.KindOf(err))
	})

	t.Run("pending request", func(t *testing.T) {
		_, err := env.follows.RequestFollow(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		require.NoError(t, env.follows.ApproveFollow(ctx, bob.ID, alice.ID))

		notifs := env.store.notificationsFor(alice.ID)
		require.Len(t, notifs, 1)
		assert.Equal(t, model.NotificationTypeFollowApproved, notifs[0].Type)
		assert.Equal(t, bob.ID, notifs[0].SenderID)
		assert.Equal(t, 1, env.delivery.pingCount(alice.ID))
	})

	t.Run("already approved", func(t *testing.T) {
		err := env.follows.ApproveFollow(ctx, bob.ID, alice.ID)
		assert.ErrorIs(t, err, model.ErrFollowRequestNotFound)
	})
}

func TestDenyFollow(t *testing.T) {
	env := newTestEnv(t)
	alice, bob, _ := env.seedUsers()
	ctx := context.Background()

	_, err := env.follows.RequestFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, env.follows.DenyFollow(ctx, bob.ID, alice.ID))
	assert.Zero(t, env.store.edgeCount())
	assert.Empty(t, env.store.notificationsFor(alice.ID), "deny sends nothing")

	err = env.follows.DenyFollow(ctx, bob.ID, alice.ID)
	assert.ErrorIs(t, err, model.ErrFollowRequestNotFound)

	// A denied requester can ask again.
	status, err := env.follows.RequestFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowPending, status)
}

func TestDenyFollow_ApprovedEdgeIsNotDenied(t *testing.T) {
	env := newTestEnv(t)
	alice, _, carol := env.seedUsers()
	ctx := context.Background()

	_, err := env.follows.RequestFollow(ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	err = env.follows.DenyFollow(ctx, carol.ID, alice.ID)
	assert.ErrorIs(t, err, model.ErrFollowRequestNotFound)
	assert.Equal(t, 1, env.store.edgeCount())
}

func TestUnfollow(t *testing.T) {
	env := newTestEnv(t)
	alice, bob, carol := env.seedUsers()
	ctx := context.Background()

	t.Run("no edge", func(t *testing.T) {
		assert.ErrorIs(t, env.follows.Unfollow(ctx, alice.ID, carol.ID), model.ErrFollowNotFound)
	})

	t.Run("approved edge", func(t *testing.T) {
		_, err := env.follows.RequestFollow(ctx, alice.ID, carol.ID)
		require.NoError(t, err)
		require.NoError(t, env.follows.Unfollow(ctx, alice.ID, carol.ID))

		assert.Zero(t, env.store.user(carol.ID).FollowerCount)
		assert.Zero(t, env.store.user(alice.ID).FollowingCount)
		assert.Contains(t, env.publisher.types(), queue.EventUserUnfollowed)
	})

	t.Run("pending edge is withdrawn", func(t *testing.T) {
		_, err := env.follows.RequestFollow(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		require.NoError(t, env.follows.Unfollow(ctx, alice.ID, bob.ID))

		assert.Zero(t, env.store.edgeCount())
		assert.Zero(t, env.store.user(bob.ID).FollowerCount)
	})
}

func TestListApprovedFollowers(t *testing.T) {
	env := newTestEnv(t)
	alice, bob, carol := env.seedUsers()
	ctx := context.Background()

	// carol approved, alice pending on bob
	_, err := env.follows.RequestFollow(ctx, carol.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, env.follows.ApproveFollow(ctx, bob.ID, carol.ID))
	_, err = env.follows.RequestFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	t.Run("approved follower sees list", func(t *testing.T) {
		users, err := env.follows.ListApprovedFollowers(ctx, carol.ID, env.store.user(bob.ID))
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "carol", users[0].Username)
	})

	t.Run("pending follower is refused", func(t *testing.T) {
		_, err := env.follows.ListApprovedFollowers(ctx, alice.ID, env.store.user(bob.ID))
		assert.ErrorIs(t, err, model.ErrPrivateContent)
	})

	t.Run("following list of public account", func(t *testing.T) {
		users, err := env.follows.ListApprovedFollowing(ctx, 0, env.store.user(carol.ID))
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "bob", users[0].Username)
	})

	t.Run("pending list", func(t *testing.T) {
		requests, err := env.follows.ListPendingRequests(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, requests, 1)
		assert.Equal(t, alice.ID, requests[0].Follower.ID)
	})
}

func TestListPendingRequests_NewestFirst(t *testing.T) {
	env := newTestEnv(t)
	alice, bob, carol := env.seedUsers()
	ctx := context.Background()

	_, err := env.follows.RequestFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = env.follows.RequestFollow(ctx, carol.ID, bob.ID)
	require.NoError(t, err)

	requests, err := env.follows.ListPendingRequests(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, carol.ID, requests[0].Follower.ID)
	assert.Equal(t, alice.ID, requests[1].Follower.ID)
}
