package chathub

import "sync"

// memberSet is the set of connections joined to one chat, with its own lock.
// A set that drains to empty is retired under its lock; retired sets reject
// joins so nobody lands in a set about to be unlinked from the map.
type memberSet struct {
	mu      sync.Mutex
	conns   map[string]struct{}
	retired bool
}

// leave removes the connection and retires the set when it drains to empty.
func (ms *memberSet) leave(connID string) (retired bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.conns, connID)
	if len(ms.conns) == 0 {
		ms.retired = true
	}
	return ms.retired
}

// GroupManager tracks which connections belong to which chats. Membership is
// many-to-many: a connection may sit in several chats at once. One concurrent
// map keyed by chat id with a per-chat member lock keeps join/leave traffic
// for unrelated chats independent.
type GroupManager struct {
	groups sync.Map // chat id (int) -> *memberSet
}

func NewGroupManager() *GroupManager {
	return &GroupManager{}
}

func (g *GroupManager) JoinGroup(connID string, chatID int) {
	for {
		set, _ := g.groups.LoadOrStore(chatID, &memberSet{conns: make(map[string]struct{})})
		ms := set.(*memberSet)
		ms.mu.Lock()
		if !ms.retired {
			ms.conns[connID] = struct{}{}
			ms.mu.Unlock()
			return
		}
		ms.mu.Unlock()
		// Raced a leave that just retired this set. Unlink it (only if it is
		// still the mapped value) and retry onto a fresh one.
		g.groups.CompareAndDelete(chatID, set)
	}
}

func (g *GroupManager) LeaveGroup(connID string, chatID int) {
	set, ok := g.groups.Load(chatID)
	if !ok {
		return
	}
	if set.(*memberSet).leave(connID) {
		g.groups.CompareAndDelete(chatID, set)
	}
}

// LeaveAll removes the connection from every chat it joined. Called on
// disconnect so dead connections never linger in member sets.
func (g *GroupManager) LeaveAll(connID string) {
	g.groups.Range(func(key, value any) bool {
		if value.(*memberSet).leave(connID) {
			g.groups.CompareAndDelete(key, value)
		}
		return true
	})
}

// Members returns a snapshot of the connections currently in the chat.
func (g *GroupManager) Members(chatID int) []string {
	set, ok := g.groups.Load(chatID)
	if !ok {
		return nil
	}
	ms := set.(*memberSet)
	ms.mu.Lock()
	defer ms.mu.Unlock()
	members := make([]string, 0, len(ms.conns))
	for connID := range ms.conns {
		members = append(members, connID)
	}
	return members
}
