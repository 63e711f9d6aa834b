package service

import "sync"

// awaitStore: чат ждёт аргумент для команды, отправленной без него (/add, /check ...).
type awaitStore struct {
	mu sync.Mutex
	m  map[int64]string // chatID -> command
}

func newAwaitStore() *awaitStore {
	return &awaitStore{m: make(map[int64]string)}
}

func (a *awaitStore) set(chatID int64, cmd string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m[chatID] = cmd
}

// pop забирает ожидание, если оно было.
func (a *awaitStore) pop(chatID int64) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cmd, ok := a.m[chatID]
	delete(a.m, chatID)
	return cmd, ok
}

func (a *awaitStore) clear(chatID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.m, chatID)
}
