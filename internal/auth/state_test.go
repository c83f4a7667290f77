package auth

import (
	"testing"

	"github.com/hitoshi/fundman/internal/model"
)

func TestStateStore_NilNotifier(t *testing.T) {
	// 認証プロバイダーが利用できない環境では即座に読み込み完了となる
	s := NewStateStore(nil)
	defer s.Close()

	identity, loading := s.Current()
	if loading {
		t.Error("loading = true, want false for nil notifier")
	}
	if identity != nil {
		t.Errorf("identity = %+v, want nil", identity)
	}
}

func TestStateStore_InitialDelivery(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	// 初回配信（購読時の現在状態）で読み込み完了となる
	s := NewStateStore(n)
	defer s.Close()

	identity, loading := s.Current()
	if loading {
		t.Error("loading = true, want false after initial delivery")
	}
	if identity != nil {
		t.Errorf("identity = %+v, want nil (signed out)", identity)
	}
}

func TestStateStore_TracksSignInAndOut(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	s := NewStateStore(n)
	defer s.Close()

	n.Publish(StateEvent{
		Type:     StateSignedIn,
		Identity: &model.Identity{UID: "uid-1", Email: "a@example.com", DisplayName: "Alice"},
	})

	identity, loading := s.Current()
	if loading {
		t.Error("loading = true after sign in")
	}
	if identity == nil || identity.UID != "uid-1" {
		t.Fatalf("identity = %+v, want UID uid-1", identity)
	}

	n.Publish(StateEvent{Type: StateSignedOut, Identity: nil})

	identity, _ = s.Current()
	if identity != nil {
		t.Errorf("identity after sign out = %+v, want nil", identity)
	}
}

func TestStateStore_CloseStopsUpdates(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	s := NewStateStore(n)
	s.Close()

	n.Publish(StateEvent{
		Type:     StateSignedIn,
		Identity: &model.Identity{UID: "uid-1"},
	})

	// 購読解除後は状態が更新されない
	identity, _ := s.Current()
	if identity != nil {
		t.Errorf("identity after close = %+v, want nil", identity)
	}
}
