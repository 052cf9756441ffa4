// Package userlock はユーザー単位の排他制御を提供する。
// 同一ユーザーの会話ターンとタスク追加は直列化し、異なるユーザー間は並行に処理する。
package userlock

import (
	"context"
	"sync"
)

// entry はユーザーごとのロックと参照数を保持する。
// 参照数が0になったエントリはマップから削除する。
type entry struct {
	ch   chan struct{}
	refs int
}

// Locker はキー（ユーザーID）ごとのミューテックス。
type Locker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New は新しいLockerを生成する。
func New() *Locker {
	return &Locker{entries: make(map[string]*entry)}
}

// Lock はキーのロックを取得し、解放関数を返す。
// ctxがキャンセルされた場合はロックを取得せずにctx.Err()を返す。
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	e := l.acquire(key)

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, nil
}

// Len は現在保持しているエントリ数を返す。テスト用。
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Locker) acquire(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
