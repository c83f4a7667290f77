package auth

import (
	"sync"

	"github.com/hitoshi/fundman/internal/model"
)

// StateStore は現在の認証済みアイデンティティと読み込み状態を保持する。
// Notifierの通知ストリームへの購読をちょうど1つ所有し、
// 通知のたびにアイデンティティを上書きして読み込み完了とする。
// モジュールレベルのグローバル状態は持たず、明示的に生成・破棄する。
type StateStore struct {
	mu       sync.RWMutex
	identity *model.Identity
	loading  bool
	unsub    func()
}

// NewStateStore はStateStoreを生成する。
// notifierがnilの場合（認証プロバイダーが利用できない実行環境）は、
// ネットワーク呼び出しを一切行わず identity=nil, loading=false で即座に確定する。
// notifierが指定された場合は購読を1つ登録し、初回配信で読み込み完了となる。
func NewStateStore(notifier *Notifier) *StateStore {
	s := &StateStore{loading: true}

	if notifier == nil {
		s.loading = false
		return s
	}

	s.unsub = notifier.Subscribe(func(event StateEvent) {
		s.mu.Lock()
		s.identity = event.Identity
		s.loading = false
		s.mu.Unlock()
	})

	return s
}

// Current は現在のアイデンティティと読み込み状態を返す。
// 未認証の場合identityはnil。
func (s *StateStore) Current() (identity *model.Identity, loading bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.loading
}

// Close は通知ストリームへの購読を解放する。複数回呼び出しても安全。
func (s *StateStore) Close() {
	if s.unsub != nil {
		s.unsub()
	}
}
