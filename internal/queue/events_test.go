package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMapRoundTrip(t *testing.T) {
	event := NewPostCommentedEvent(2, 1, 42)

	values, err := event.ToMap()
	require.NoError(t, err)
	assert.Equal(t, EventPostCommented, values["type"])

	parsed, err := ParseEvent(values)
	require.NoError(t, err)
	assert.Equal(t, event.ActorID, parsed.ActorID)
	assert.Equal(t, event.RecipientID, parsed.RecipientID)
	require.NotNil(t, parsed.EntityID)
	assert.Equal(t, int64(42), *parsed.EntityID)
}

func TestParseEventMissingData(t *testing.T) {
	_, err := ParseEvent(map[string]interface{}{"type": EventUserFollowed})
	assert.Error(t, err)
}

func TestFollowEventOmitsActivityFields(t *testing.T) {
	values, err := NewUserFollowedEvent(1, 2).ToMap()
	require.NoError(t, err)

	data := values["data"].(string)
	assert.Contains(t, data, `"follower_id":1`)
	assert.NotContains(t, data, "actor_id")
	assert.NotContains(t, data, "entity_id")
}
