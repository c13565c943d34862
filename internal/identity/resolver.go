// Package identity decides which username a viewer connects to chat with.
package identity

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	pkgjwt "github.com/weiawesome/wes-io-live/viewer-client/pkg/jwt"
	pkglog "github.com/weiawesome/wes-io-live/viewer-client/pkg/log"
)

const guestUsernameKey = "guestUsername"

// DefaultGuestPrefix prefixes generated guest names.
const DefaultGuestPrefix = "Gost_"

// Resolver picks the profile username from a bearer token, falling back to a
// guest name generated once per session.
type Resolver struct {
	token     string
	sessionID string
	prefix    string
	store     SessionStore
	now       func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewResolver(token, sessionID, prefix string, store SessionStore) *Resolver {
	if prefix == "" {
		prefix = DefaultGuestPrefix
	}
	return &Resolver{
		token:     token,
		sessionID: sessionID,
		prefix:    prefix,
		store:     store,
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Resolve returns the username to connect with.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	l := pkglog.Ctx(ctx)

	if r.token != "" {
		username, err := pkgjwt.UsernameFromToken(r.token, r.now())
		if err == nil {
			return username, nil
		}
		l.Warn().Err(err).Msg("cannot read username from token, connecting as guest")
	}

	name, err := r.store.GetOrCreate(ctx, r.sessionID, guestUsernameKey, r.guestName)
	if err != nil {
		return "", err
	}
	l.Debug().Str(pkglog.FieldUsername, name).Msg("using guest identity")
	return name, nil
}

func (r *Resolver) guestName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prefix + strconv.Itoa(r.rng.Intn(1000))
}
