package calendar

import (
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// DefaultStateTTL bounds how long a user has to complete the consent screen.
const DefaultStateTTL = 10 * time.Minute

type oauthState struct {
	userID   string
	provider Provider
}

// StateStore issues single-use OAuth state values bound to a user and provider.
type StateStore struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

// NewStateStore creates a store whose states expire after ttl.
func NewStateStore(ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateStore{cache: gocache.New(ttl, 2*ttl)}
}

// Issue returns a new random state for userID and provider.
func (s *StateStore) Issue(userID string, provider Provider) string {
	state := uuid.NewString()
	s.cache.Set(state, oauthState{userID: userID, provider: provider}, gocache.DefaultExpiration)
	return state
}

// Consume validates and removes a state, returning the user it was issued to.
func (s *StateStore) Consume(state string, provider Provider) (string, bool) {
	if state == "" {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(state)
	if !ok {
		return "", false
	}
	s.cache.Delete(state)

	st, ok := v.(oauthState)
	if !ok || st.provider != provider {
		return "", false
	}
	return st.userID, true
}
