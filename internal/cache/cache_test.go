package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

type keyedRequest struct {
	Entities []string `json:"entities"`
	Start    string   `json:"start"`
}

func TestKeyIsStableAndScoped(t *testing.T) {
	a := Key(domainfacts.FamilyIFIR, "odm", keyedRequest{Entities: []string{"A"}, Start: "2024-01"})
	b := Key(domainfacts.FamilyIFIR, "odm", keyedRequest{Entities: []string{"A"}, Start: "2024-01"})
	c := Key(domainfacts.FamilyRA, "odm", keyedRequest{Entities: []string{"A"}, Start: "2024-01"})
	d := Key(domainfacts.FamilyIFIR, "odm", keyedRequest{Entities: []string{"B"}, Start: "2024-01"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.True(t, strings.HasPrefix(a, "kpi:ifir:odm:"))
	assert.Len(t, strings.TrimPrefix(a, "kpi:ifir:odm:"), 40)
}

func TestNopNeverHits(t *testing.T) {
	c := Nop()
	c.Set(context.Background(), "kpi:x", 1)
	var out int
	assert.False(t, c.Get(context.Background(), "kpi:x", &out))
	assert.Zero(t, c.Flush(context.Background()))
}

func TestRedisCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	c, err := NewRedis(addr, time.Minute, logger.Nop())
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	key := Key(domainfacts.FamilyRA, "options", keyedRequest{Start: "2024-01"})
	c.Set(ctx, key, keyedRequest{Entities: []string{"A"}})

	var got keyedRequest
	require.True(t, c.Get(ctx, key, &got))
	assert.Equal(t, []string{"A"}, got.Entities)

	assert.GreaterOrEqual(t, c.Flush(ctx), 1)
	assert.False(t, c.Get(ctx, key, &got))
}
