package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"socialgraph/internal/model"
)

const (
	// PreviewCachePrefix is the key prefix for cached link previews
	PreviewCachePrefix = "linkpreview:"

	// negativeEntry marks a URL that produced no usable preview.
	negativeEntry = "null"
)

// PreviewCache stores fetched link previews so repeated links in a busy
// conversation are fetched once per TTL window.
type PreviewCache interface {
	// Get returns (preview, found, error). A cached miss is found=true with a nil preview.
	Get(ctx context.Context, url string) (*model.LinkPreview, bool, error)

	// Set stores a preview, or a negative entry when preview is nil.
	Set(ctx context.Context, url string, preview *model.LinkPreview, ttl time.Duration) error
}

// RedisPreviewCache implements PreviewCache with plain string keys holding JSON.
type RedisPreviewCache struct {
	client *redis.Client
}

func NewPreviewCache(client *redis.Client) PreviewCache {
	return &RedisPreviewCache{client: client}
}

// previewKey hashes the URL so arbitrary user input never becomes part of a key.
func previewKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return PreviewCachePrefix + hex.EncodeToString(sum[:])
}

func (c *RedisPreviewCache) Get(ctx context.Context, url string) (*model.LinkPreview, bool, error) {
	raw, err := c.client.Get(ctx, previewKey(url)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get preview: %w", err)
	}

	if raw == negativeEntry {
		return nil, true, nil
	}

	var p model.LinkPreview
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false, fmt.Errorf("decode preview: %w", err)
	}
	return &p, true, nil
}

func (c *RedisPreviewCache) Set(ctx context.Context, url string, preview *model.LinkPreview, ttl time.Duration) error {
	value := negativeEntry
	if preview != nil {
		data, err := json.Marshal(preview)
		if err != nil {
			return fmt.Errorf("encode preview: %w", err)
		}
		value = string(data)
	}

	if err := c.client.Set(ctx, previewKey(url), value, ttl).Err(); err != nil {
		return fmt.Errorf("set preview: %w", err)
	}
	return nil
}
