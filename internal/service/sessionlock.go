package service

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// SessionLocker serialises pipeline turns per session id. Locks are sharded
// so unrelated sessions rarely contend; two sessions hashing to the same
// shard serialise against each other, which is safe, just slower.
type SessionLocker struct {
	shards [lockShards]sync.Mutex
}

func NewSessionLocker() *SessionLocker {
	return &SessionLocker{}
}

func (l *SessionLocker) shard(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &l.shards[h.Sum32()%lockShards]
}

// Lock blocks until the shard for the session is held.
func (l *SessionLocker) Lock(sessionID string) {
	l.shard(sessionID).Lock()
}

func (l *SessionLocker) Unlock(sessionID string) {
	l.shard(sessionID).Unlock()
}
