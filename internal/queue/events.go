package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	// Published by this service for the feed subsystem.
	EventUserFollowed   = "user_followed"
	EventUserUnfollowed = "user_unfollowed"

	// Published by the content subsystem and consumed by the notification workers.
	EventPostCommented = "post_commented"
	EventPostReacted   = "post_reacted"
)

// Stream names
const (
	StreamFollows  = "stream:follows"
	StreamActivity = "stream:activity"
)

// Consumer group name for notification workers
const (
	ConsumerGroupNotifications = "notification_workers"
)

// Event is the envelope shared by every stream. Fields irrelevant to a
// type are left zero and omitted from the JSON.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	// Follow events
	FollowerID int64 `json:"follower_id,omitempty"`
	FolloweeID int64 `json:"followee_id,omitempty"`

	// Activity events: ActorID acted on content owned by RecipientID.
	ActorID     int64  `json:"actor_id,omitempty"`
	RecipientID int64  `json:"recipient_id,omitempty"`
	EntityID    *int64 `json:"entity_id,omitempty"`
}

// NewUserFollowedEvent is published once an edge becomes approved.
func NewUserFollowedEvent(followerID, followeeID int64) Event {
	return Event{
		Type:       EventUserFollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// NewUserUnfollowedEvent is published when an approved edge is removed.
func NewUserUnfollowedEvent(followerID, followeeID int64) Event {
	return Event{
		Type:       EventUserUnfollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

func NewPostCommentedEvent(actorID, recipientID, commentID int64) Event {
	return Event{
		Type:        EventPostCommented,
		Timestamp:   time.Now().Unix(),
		ActorID:     actorID,
		RecipientID: recipientID,
		EntityID:    &commentID,
	}
}

func NewPostReactedEvent(actorID, recipientID, postID int64) Event {
	return Event{
		Type:        EventPostReacted,
		Timestamp:   time.Now().Unix(),
		ActorID:     actorID,
		RecipientID: recipientID,
		EntityID:    &postID,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e Event) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseEvent parses an Event from Redis stream message values.
func ParseEvent(values map[string]interface{}) (Event, error) {
	data, ok := values["data"].(string)
	if !ok {
		return Event{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
