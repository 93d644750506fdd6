package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/maheshrc27/captionflow/internal/models"
	"github.com/maheshrc27/captionflow/internal/observability"
	"github.com/redis/go-redis/v9"
)

const trackerUsersKey = "enhancing:users"

// EnhancementTracker keeps the "currently enhancing" markers and the chosen
// display version per item. It is a cache: the content tables are the source
// of truth and Reconcile drops markers that disagree with them.
type EnhancementTracker struct {
	client *redis.Client
}

func NewEnhancementTracker(client *redis.Client) *EnhancementTracker {
	return &EnhancementTracker{client: client}
}

func markerKey(userID string) string   { return "enhancing:" + userID }
func selectedKey(userID string) string { return "selected:" + userID }

// ItemKey is the member stored in marker sets and version hashes.
func ItemKey(kind models.ContentKind, id string) string {
	return string(kind) + ":" + id
}

func ParseItemKey(key string) (models.ContentKind, string, error) {
	kind, id, ok := strings.Cut(key, ":")
	if !ok || !models.ContentKind(kind).Valid() || id == "" {
		return "", "", fmt.Errorf("malformed item key %q", key)
	}
	return models.ContentKind(kind), id, nil
}

func (t *EnhancementTracker) Add(ctx context.Context, userID string, kind models.ContentKind, id string) error {
	pipe := t.client.TxPipeline()
	pipe.SAdd(ctx, markerKey(userID), ItemKey(kind, id))
	pipe.SAdd(ctx, trackerUsersKey, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RedisErrors.WithLabelValues("add").Inc()
		return err
	}
	return nil
}

func (t *EnhancementTracker) Remove(ctx context.Context, userID string, kind models.ContentKind, id string) error {
	if err := t.client.SRem(ctx, markerKey(userID), ItemKey(kind, id)).Err(); err != nil {
		observability.RedisErrors.WithLabelValues("remove").Inc()
		return err
	}

	n, err := t.client.SCard(ctx, markerKey(userID)).Result()
	if err != nil {
		observability.RedisErrors.WithLabelValues("remove").Inc()
		return err
	}
	if n == 0 {
		return t.client.SRem(ctx, trackerUsersKey, userID).Err()
	}
	return nil
}

func (t *EnhancementTracker) Markers(ctx context.Context, userID string) ([]string, error) {
	members, err := t.client.SMembers(ctx, markerKey(userID)).Result()
	if err != nil {
		observability.RedisErrors.WithLabelValues("markers").Inc()
		return nil, err
	}
	return members, nil
}

// Users lists every user that currently has at least one marker.
func (t *EnhancementTracker) Users(ctx context.Context) ([]string, error) {
	return t.client.SMembers(ctx, trackerUsersKey).Result()
}

func (t *EnhancementTracker) SetSelected(ctx context.Context, userID string, kind models.ContentKind, id, version string) error {
	if err := t.client.HSet(ctx, selectedKey(userID), ItemKey(kind, id), version).Err(); err != nil {
		observability.RedisErrors.WithLabelValues("set_selected").Inc()
		return err
	}
	return nil
}

func (t *EnhancementTracker) SelectedVersions(ctx context.Context, userID string) (map[string]string, error) {
	versions, err := t.client.HGetAll(ctx, selectedKey(userID)).Result()
	if err != nil {
		observability.RedisErrors.WithLabelValues("selected").Inc()
		return nil, err
	}
	return versions, nil
}

// Forget drops everything cached about a deleted item.
func (t *EnhancementTracker) Forget(ctx context.Context, userID string, kind models.ContentKind, id string) error {
	if err := t.client.HDel(ctx, selectedKey(userID), ItemKey(kind, id)).Err(); err != nil {
		return err
	}
	return t.Remove(ctx, userID, kind, id)
}
