package chathub

import "sync"

// connSet is the set of live connections for one user. Each user gets their
// own lock so registration traffic for different users never contends. A set
// that drains to empty is retired under its lock: retired sets reject adds,
// so a racing Join cannot land in a set about to be unlinked from the map.
type connSet struct {
	mu      sync.Mutex
	conns   map[string]struct{}
	retired bool
}

func (s *connSet) add(connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		return false
	}
	s.conns[connID] = struct{}{}
	return true
}

func (s *connSet) remove(connID string) (retired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, connID)
	if len(s.conns) == 0 {
		s.retired = true
	}
	return s.retired
}

func (s *connSet) any() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for connID := range s.conns {
		return connID, true
	}
	return "", false
}

// PresenceRegistry maps live connections to authenticated users. One user may
// hold several connections at once (multi-device). Both directions are kept
// in concurrent maps keyed per connection / per user, so Join, Leave and
// snapshot reads from different connections proceed without a shared lock.
type PresenceRegistry struct {
	conns sync.Map // connection id -> user id
	users sync.Map // user id -> *connSet
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{}
}

// Join registers the connection for the user. Re-joining the same connection
// is a no-op, so transport-level retries are harmless.
func (r *PresenceRegistry) Join(connID, userID string) {
	if _, loaded := r.conns.LoadOrStore(connID, userID); loaded {
		return
	}
	for {
		set, _ := r.users.LoadOrStore(userID, &connSet{conns: make(map[string]struct{})})
		if set.(*connSet).add(connID) {
			return
		}
		// Raced a Leave that just retired this set. Unlink it (only if it is
		// still the mapped value) and retry onto a fresh one.
		r.users.CompareAndDelete(userID, set)
	}
}

// Leave removes the connection mapping if present and reports which user it
// belonged to. Safe to call for connections that never authenticated.
func (r *PresenceRegistry) Leave(connID string) (userID string, ok bool) {
	v, loaded := r.conns.LoadAndDelete(connID)
	if !loaded {
		return "", false
	}
	userID = v.(string)
	if set, found := r.users.Load(userID); found {
		if set.(*connSet).remove(connID) {
			// A concurrent Join may already have replaced the retired set;
			// only the retired one is removed.
			r.users.CompareAndDelete(userID, set)
		}
	}
	return userID, true
}

// GetUserID resolves the authenticated user behind a connection, "" if none.
func (r *PresenceRegistry) GetUserID(connID string) string {
	if v, ok := r.conns.Load(connID); ok {
		return v.(string)
	}
	return ""
}

// ActiveUserIDs returns a distinct snapshot of the user ids with at least one
// open connection, skipping exceptConn (pass "" to include every connection).
func (r *PresenceRegistry) ActiveUserIDs(exceptConn string) []string {
	seen := make(map[string]struct{})
	var userIDs []string
	r.conns.Range(func(key, value any) bool {
		if key.(string) == exceptConn {
			return true
		}
		userID := value.(string)
		if _, dup := seen[userID]; !dup {
			seen[userID] = struct{}{}
			userIDs = append(userIDs, userID)
		}
		return true
	})
	return userIDs
}

// GetConnectionForUser returns one live connection of the user, if any. The
// answer may be stale by the time the caller uses it; callers handle the
// vanished-partner case themselves.
func (r *PresenceRegistry) GetConnectionForUser(userID string) (string, bool) {
	set, ok := r.users.Load(userID)
	if !ok {
		return "", false
	}
	return set.(*connSet).any()
}
