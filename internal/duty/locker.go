package duty

import (
	"context"
	"sync"
)

// keyedMutex はキーごとの排他ロック。
// 同じ従業員に対する開始・終了処理を同一プロセス内で直列化する。
type keyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{slots: make(map[string]*slot)}
}

// Lock はkeyのロックを取得し、解放関数を返す。
// 取得前にctxが終了した場合はctx.Err()を返す。
func (k *keyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return func() { k.release(key, s, true) }, nil
	case <-ctx.Done():
		k.release(key, s, false)
		return nil, ctx.Err()
	}
}

func (k *keyedMutex) release(key string, s *slot, held bool) {
	if held {
		<-s.ch
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}

// size は保持中のキー数を返す。
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}
