package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStorageTest(t *testing.T) (*RedisStorage, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStorage(rdb, "gs", 0), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestRedisStorageRoundTripThroughStore(t *testing.T) {
	storage, mr, done := newRedisStorageTest(t)
	defer done()
	ctx := context.Background()

	store := NewStore(storage)
	if err := store.SetSession(ctx, testProfile(), "tok"); err != nil {
		t.Fatalf("set session: %v", err)
	}
	if !mr.Exists("gs:" + DefaultNamespace) {
		t.Fatal("expected record under gs:skillup-auth")
	}

	restored := NewStore(storage)
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := restored.Get(); got.AccessToken != "tok" || got.User.Username != "ada" {
		t.Fatalf("unexpected restored session %+v", got)
	}
}

func TestRedisStorageMissingRecord(t *testing.T) {
	storage, _, done := newRedisStorageTest(t)
	defer done()

	if _, err := storage.Load(context.Background(), "nothing"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if err := storage.Delete(context.Background(), "nothing"); err != nil {
		t.Fatalf("delete must be idempotent: %v", err)
	}
}

func TestRedisStorageTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	storage := NewRedisStorage(rdb, "gs", time.Minute)
	if err := storage.Save(context.Background(), "ns", []byte("{}")); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := storage.Load(context.Background(), "ns"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected expired record, got %v", err)
	}
}

func TestRedisStorageUnavailable(t *testing.T) {
	storage, mr, done := newRedisStorageTest(t)
	defer done()
	mr.Close()

	err := storage.Save(context.Background(), "ns", []byte("{}"))
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestFileStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	storage := NewFileStorage(dir)
	ctx := context.Background()

	if _, err := storage.Load(ctx, DefaultNamespace); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}

	store := NewStore(storage)
	_ = store.SetSession(ctx, testProfile(), "tok")

	restored := NewStore(NewFileStorage(dir))
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if restored.Get().AccessToken != "tok" {
		t.Fatalf("unexpected restored session %+v", restored.Get())
	}

	if err := storage.Delete(ctx, DefaultNamespace); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := storage.Delete(ctx, DefaultNamespace); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}
