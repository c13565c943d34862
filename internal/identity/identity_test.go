package identity

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	pkgjwt "github.com/weiawesome/wes-io-live/viewer-client/pkg/jwt"
)

func TestResolver_PrefersTokenUsername(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &pkgjwt.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Username:         "alice",
		Type:             "access",
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	store := NewMemoryStore()
	r := NewResolver(token, "s1", "", store)

	name, err := r.Resolve(context.Background())
	if err != nil || name != "alice" {
		t.Fatalf("name=%q err=%v", name, err)
	}
	if len(store.values) != 0 {
		t.Fatalf("guest name generated despite valid token")
	}
}

func TestResolver_GuestNameStableWithinSession(t *testing.T) {
	store := NewMemoryStore()

	first, err := NewResolver("", "tab-1", "", store).Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// the server's own fallback names guests Gost_<n>
	if !strings.HasPrefix(first, "Gost_") {
		t.Fatalf("guest name=%q", first)
	}

	// a fresh mount in the same session reuses the stored name
	for i := 0; i < 20; i++ {
		again, err := NewResolver("", "tab-1", "", store).Resolve(context.Background())
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if again != first {
			t.Fatalf("guest name changed within session: %q -> %q", first, again)
		}
	}
}

func TestResolver_InvalidTokenFallsBackToGuest(t *testing.T) {
	r := NewResolver("garbage", "s1", "Viewer_", NewMemoryStore())
	name, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasPrefix(name, "Viewer_") {
		t.Fatalf("name=%q", name)
	}
}

func TestMemoryStore_ConcurrentCallersAgree(t *testing.T) {
	store := NewMemoryStore()

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _ := store.GetOrCreate(context.Background(), "s", "k", func() string { return uuid.NewString() })
			results[i] = v
		}(i)
	}
	wg.Wait()

	for _, v := range results {
		if v != results[0] {
			t.Fatalf("callers disagree: %v", results)
		}
	}
}

func TestRedisStore_GetOrCreate(t *testing.T) {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_ADDRESS not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	store := NewRedisStoreFromClient(client, time.Minute)
	defer store.Close()

	sessionID := uuid.NewString()
	ctx := context.Background()
	defer client.Del(ctx, store.key(sessionID, guestUsernameKey))

	first, err := store.GetOrCreate(ctx, sessionID, guestUsernameKey, func() string { return "Gost_1" })
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := store.GetOrCreate(ctx, sessionID, guestUsernameKey, func() string { return "Gost_2" })
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first != "Gost_1" || second != "Gost_1" {
		t.Fatalf("first=%q second=%q", first, second)
	}
}
