package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"finance_ledger/internal/domain"

	redis "github.com/redis/go-redis/v9"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
}

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestSetGetInvalidate(t *testing.T) {
	rdb := testClient(t)
	ctx := context.Background()

	const userID = int64(990001) // keep test keys away from real data
	c := New(rdb, 30*time.Second)
	defer c.InvalidateUser(ctx, userID)

	if _, ok := c.GetPage(ctx, userID, 1, 10); ok {
		t.Fatal("expected a miss on empty cache")
	}

	page := []*domain.Transaction{
		{ID: 1, UserID: userID, Amount: 1500, Type: domain.TypeIncome, Category: "salary"},
		{ID: 2, UserID: userID, Amount: 250, Type: domain.TypeExpense, Category: "food"},
	}
	c.SetPage(ctx, userID, 1, 10, page)

	got, ok := c.GetPage(ctx, userID, 1, 10)
	if !ok {
		t.Fatal("expected a hit after set")
	}
	if len(got) != 2 || got[0].Amount != 1500 || got[1].Type != domain.TypeExpense {
		t.Fatalf("cached page = %+v", got)
	}

	// a different page is still a miss
	if _, ok := c.GetPage(ctx, userID, 2, 10); ok {
		t.Fatal("page 2 should be a miss")
	}

	c.InvalidateUser(ctx, userID)
	if _, ok := c.GetPage(ctx, userID, 1, 10); ok {
		t.Fatal("expected a miss after invalidation")
	}
}

func TestInvalidateDropsAllPageSizes(t *testing.T) {
	rdb := testClient(t)
	ctx := context.Background()

	const userID = int64(990002)
	c := New(rdb, 30*time.Second)
	defer c.InvalidateUser(ctx, userID)

	c.SetPage(ctx, userID, 1, 10, []*domain.Transaction{{ID: 1, UserID: userID}})
	c.SetPage(ctx, userID, 2, 10, []*domain.Transaction{{ID: 2, UserID: userID}})
	c.SetPage(ctx, userID, 1, 50, []*domain.Transaction{{ID: 3, UserID: userID}})

	c.InvalidateUser(ctx, userID)

	for _, pl := range [][2]int{{1, 10}, {2, 10}, {1, 50}} {
		if _, ok := c.GetPage(ctx, userID, pl[0], pl[1]); ok {
			t.Fatalf("page=%d limit=%d survived invalidation", pl[0], pl[1])
		}
	}
}

func TestDisabledCache(t *testing.T) {
	c := New(nil, time.Second)
	ctx := context.Background()

	c.SetPage(ctx, 1, 1, 10, []*domain.Transaction{{ID: 1}})
	if _, ok := c.GetPage(ctx, 1, 1, 10); ok {
		t.Fatal("disabled cache returned a hit")
	}
	c.InvalidateUser(ctx, 1) // must not panic
}
