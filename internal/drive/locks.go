package drive

import "sync"

// ownerLocks serializuje operacje strukturalne (create/rename/move/clone/delete)
// per właściciel. Operacje tylko-do-odczytu nie biorą tych blokad.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[int64]*sync.Mutex)}
}

func (l *ownerLocks) get(ownerID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[ownerID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[ownerID] = lock
	}
	return lock
}
