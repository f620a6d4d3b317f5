package webhooks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/angelmondragon/shopwish-backend/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopic(t *testing.T) {
	cases := map[string]Topic{
		"products/update":         TopicProductsUpdate,
		"inventory_levels/update": TopicInventoryLevelsUpdate,
		"orders/create":           TopicOrdersCreate,
		"app/uninstalled":         TopicAppUninstalled,
		"orders/paid":             TopicUnknown,
		"":                        TopicUnknown,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseTopic(raw), raw)
	}
	assert.Equal(t, "orders/create", TopicOrdersCreate.String())
	assert.Equal(t, "unknown", TopicUnknown.String())
}

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var payload struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 7759200747799, "b": "gid-1", "c": null}`), &payload))
	assert.Equal(t, ID("7759200747799"), payload.A)
	assert.Equal(t, ID("gid-1"), payload.B)
	assert.Equal(t, ID(""), payload.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a": true}`), &payload))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"id":1}`)
	header := Sign("shh", body)

	assert.True(t, VerifySignature("shh", body, header))
	assert.False(t, VerifySignature("other", body, header))
	assert.False(t, VerifySignature("shh", []byte(`{"id":2}`), header))
	assert.False(t, VerifySignature("shh", body, "not base64!"))
	assert.False(t, VerifySignature("", body, header))
}

func TestIdempotencyGuard(t *testing.T) {
	ctx := context.Background()
	guard, err := NewIdempotencyGuard(redis.NewMemoryStore(), time.Hour, IdempotencyScope)
	require.NoError(t, err)

	seen, err := guard.CheckAndMark(ctx, "delivery-1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = guard.CheckAndMark(ctx, "delivery-1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, guard.Delete(ctx, "delivery-1"))
	seen, err = guard.CheckAndMark(ctx, "delivery-1")
	require.NoError(t, err)
	assert.False(t, seen)

	_, err = guard.CheckAndMark(ctx, "")
	assert.Error(t, err)
}

func TestNewIdempotencyGuardValidates(t *testing.T) {
	_, err := NewIdempotencyGuard(nil, time.Hour, "scope")
	assert.Error(t, err)
	_, err = NewIdempotencyGuard(redis.NewMemoryStore(), -time.Second, "scope")
	assert.Error(t, err)
	_, err = NewIdempotencyGuard(redis.NewMemoryStore(), time.Hour, "")
	assert.Error(t, err)
}

func TestInventoryIndex(t *testing.T) {
	idx := NewInventoryIndex()
	var product ProductPayload
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1, "title": "Tee", "handle": "tee", "variants": [
		{"id": 10, "price": "9.5", "inventory_item_id": 100},
		{"id": 11, "price": "9.5"}
	]}`), &product))

	assert.Equal(t, 1, idx.IndexProduct("shop", product))

	item, err := idx.Resolve(context.Background(), "shop", "100")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "1", item.ProductID)
	assert.Equal(t, "10", item.VariantID)
	assert.Equal(t, "9.50", item.Price)

	item, err = idx.Resolve(context.Background(), "other", "100")
	require.NoError(t, err)
	assert.Nil(t, item)

	assert.Equal(t, 1, idx.PurgeShop("shop"))
	item, _ = idx.Resolve(context.Background(), "shop", "100")
	assert.Nil(t, item)
}
