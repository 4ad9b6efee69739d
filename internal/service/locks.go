package service

import "sync"

// roomLocker 以房間 ID 為單位的互斥鎖
// 同一房間的所有變更（加入、準備、換手、離開）必須先取得該房的鎖，
// 不同房間的操作彼此不阻塞
// 條目以引用計數管理：最後一個持有者釋放時順帶回收，map 不會無限增長，
// 也不會在還有人排隊時換掉別人正在等的那把鎖
type roomLocker struct {
	mu    sync.Mutex
	locks map[uint]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int // 持有中與排隊中的呼叫端數量
}

func newRoomLocker() *roomLocker {
	return &roomLocker{locks: make(map[uint]*roomLock)}
}

// Lock 取得指定房間的鎖，呼叫端負責 Unlock
func (l *roomLocker) Lock(roomID uint) {
	l.mu.Lock()
	entry, ok := l.locks[roomID]
	if !ok {
		entry = &roomLock{}
		l.locks[roomID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

// Unlock 釋放房間鎖，最後一個離開的呼叫端回收條目
func (l *roomLocker) Unlock(roomID uint) {
	l.mu.Lock()
	entry := l.locks[roomID]
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, roomID)
	}
	l.mu.Unlock()

	entry.mu.Unlock()
}

// entryCount 目前持有條目的數量，回收行為的測試用
func (l *roomLocker) entryCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
