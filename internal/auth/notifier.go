package auth

import (
	"sync"

	"github.com/hitoshi/fundman/internal/model"
)

// StateEventType は認証状態変化イベントの種別を表す。
type StateEventType string

const (
	// StateSignedIn はサインイン完了イベント。
	StateSignedIn StateEventType = "signed_in"
	// StateSignedOut はサインアウト完了イベント。
	StateSignedOut StateEventType = "signed_out"
)

// StateEvent は認証状態の変化通知を表す。
// サインアウトイベントではIdentityはnil。
type StateEvent struct {
	Type     StateEventType
	Identity *model.Identity
}

// Notifier は認証状態変化の通知ストリームを提供する。
// Subscribe時に現在の状態を即座に1回配信し、以降は状態変化のたびに配信する。
// 購読はSubscribeが返す解除関数で解放する（リスナーのリークを防ぐ）。
type Notifier struct {
	mu      sync.Mutex
	subs    map[int]func(StateEvent)
	nextID  int
	current StateEvent
	closed  bool
}

// NewNotifier はNotifierを生成する。初期状態はサインアウト済み。
func NewNotifier() *Notifier {
	return &Notifier{
		subs:    make(map[int]func(StateEvent)),
		current: StateEvent{Type: StateSignedOut, Identity: nil},
	}
}

// Subscribe はコールバックを登録し、購読解除関数を返す。
// 登録直後に現在の認証状態を1回配信する。
// 解除関数は複数回呼び出しても安全。
func (n *Notifier) Subscribe(cb func(StateEvent)) func() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		// クローズ後の購読は現在状態のみ配信し、何も登録しない
		cb(StateEvent{Type: StateSignedOut, Identity: nil})
		return func() {}
	}

	id := n.nextID
	n.nextID++
	n.subs[id] = cb
	current := n.current
	n.mu.Unlock()

	// 初回配信はロック外で行う（コールバック内からの再購読を許容）
	cb(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Publish は認証状態変化を全購読者に配信する。
// クローズ後の配信は無視される。
func (n *Notifier) Publish(event StateEvent) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.current = event
	cbs := make([]func(StateEvent), 0, len(n.subs))
	for _, cb := range n.subs {
		cbs = append(cbs, cb)
	}
	n.mu.Unlock()

	// コールバックはロック外で呼び出す
	for _, cb := range cbs {
		cb(event)
	}
}

// SubscriberCount は現在の購読者数を返す。テストおよび診断用。
func (n *Notifier) SubscriberCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Close は通知ストリームを閉じ、全購読を解放する。
// 以降のPublishは無視される。
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.subs = make(map[int]func(StateEvent))
}
