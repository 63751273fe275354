package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redisstore "github.com/PabloGalante/mindbloss/internal/adapters/storage/redis"
	"github.com/PabloGalante/mindbloss/internal/adapters/storage/storetest"
	"github.com/PabloGalante/mindbloss/internal/catalog"
	"github.com/PabloGalante/mindbloss/internal/domain"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestJournalStore(t *testing.T) {
	storetest.RunJournalStore(t, func(t *testing.T, max int) domain.JournalStore {
		_, client := newClient(t)
		return redisstore.NewStore(client, catalog.MustDefault(), redisstore.Config{HistoryCap: max})
	})
}

func TestSessionStore(t *testing.T) {
	storetest.RunSessionStore(t, func(t *testing.T) domain.SessionStore {
		_, client := newClient(t)
		return redisstore.NewStore(client, catalog.MustDefault(), redisstore.Config{})
	})
}

func TestJournalKeysAndSessionTTL(t *testing.T) {
	mr, client := newClient(t)
	store := redisstore.NewStore(client, catalog.MustDefault(), redisstore.Config{
		Prefix:     "test",
		HistoryCap: 2,
		SessionTTL: time.Hour,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.AppendJournalEntry(ctx, &domain.JournalEntry{UserID: "u1", Entry: "x"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	list, err := mr.List("test:journal:u1")
	if err != nil {
		t.Fatalf("miniredis list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected list trimmed to 2, got %d", len(list))
	}

	sess := domain.NewSession("s1", "u1", time.Now())
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}
	if ttl := mr.TTL("test:session:s1"); ttl != time.Hour {
		t.Fatalf("session ttl = %s", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := store.GetSession(ctx, "s1"); err != domain.ErrSessionNotFound {
		t.Fatalf("expired session: got %v", err)
	}
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redisstore.Dial(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	_ = client.Close()

	if _, err := redisstore.Dial(context.Background(), "127.0.0.1:1", "", 0); err == nil {
		t.Fatalf("expected dial error against a closed port")
	}
}
