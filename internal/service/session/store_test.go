package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"monger-backend/internal/model"
)

func newTestSession(id string) model.Session {
	return newTestSessionAt(id, time.Now())
}

func newTestSessionAt(id string, at time.Time) model.Session {
	return model.Session{
		SessionID:      id,
		CustomerID:     "cust-1",
		Mode:           model.ModeConversation,
		Phase:          model.PhaseCollecting,
		CreatedAt:      at,
		LastActivityAt: at,
	}
}

func TestStoreCreateGet(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Create(newTestSession("s1")); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(newTestSession("s1")); err == nil {
		t.Fatal("expected duplicate create to fail")
	}

	got, err := store.Get("s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.SessionID != "s1" || got.Phase != model.PhaseCollecting {
		t.Errorf("unexpected session: %+v", got)
	}

	if _, err := store.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	store.Create(newTestSession("s1"))
	store.AppendMessage("s1", "monger", "first")

	got, _ := store.Get("s1")
	got.Messages[0].Content = "tampered"
	got.Phase = model.PhaseBlocked

	again, _ := store.Get("s1")
	if again.Messages[0].Content != "first" {
		t.Error("message mutated through returned copy")
	}
	if again.Phase != model.PhaseCollecting {
		t.Error("phase mutated through returned copy")
	}
}

func TestStoreUpdateBumpsActivity(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	store.Create(newTestSession("s1"))

	store.now = func() time.Time { return base.Add(time.Hour) }
	err := store.Update("s1", func(s *model.Session) error {
		s.Collected.Size = "m"
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	got, _ := store.Get("s1")
	if got.Collected.Size != "m" {
		t.Errorf("size = %q", got.Collected.Size)
	}
	if !got.LastActivityAt.Equal(base.Add(time.Hour)) {
		t.Errorf("lastActivityAt = %v", got.LastActivityAt)
	}
}

func TestStoreAppendAndRecentMessages(t *testing.T) {
	store := NewMemoryStore()
	store.Create(newTestSession("s1"))

	var ids []string
	for _, content := range []string{"a", "b", "c"} {
		msg, err := store.AppendMessage("s1", "visitor", content)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, msg.MessageID)
	}
	if ids[0] >= ids[1] || ids[1] >= ids[2] {
		t.Error("message ids must sort in append order")
	}

	recent, err := store.RecentMessages("s1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].Content != "b" || recent[1].Content != "c" {
		t.Errorf("recent = %+v", recent)
	}
}

func TestStoreClearMessages(t *testing.T) {
	store := NewMemoryStore()
	store.Create(newTestSession("s1"))
	store.AppendMessage("s1", "visitor", "hello")
	store.Update("s1", func(s *model.Session) error {
		s.Collected.Phrase = "keep me"
		return nil
	})

	if err := store.ClearMessages("s1"); err != nil {
		t.Fatal(err)
	}
	got, _ := store.Get("s1")
	if len(got.Messages) != 0 {
		t.Error("messages not cleared")
	}
	if got.Collected.Phrase != "keep me" {
		t.Error("collected state must survive a transcript clear")
	}
}

func TestStoreWithLockSerializes(t *testing.T) {
	store := NewMemoryStore()
	store.Create(newTestSession("s1"))

	const workers = 20
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.WithLock("s1", func() error {
				v := counter
				time.Sleep(time.Millisecond)
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()
	if counter != workers {
		t.Errorf("counter = %d, want %d", counter, workers)
	}
}

func TestSweeperEvictsOnlyExpired(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store.Create(newTestSessionAt("stale", base))
	store.Create(newTestSessionAt("fresh", base.Add(23*time.Hour)))

	sw := NewSweeper(store, DefaultTTL, time.Minute)
	sw.now = func() time.Time { return base.Add(25 * time.Hour) }

	if evicted := sw.SweepOnce(); evicted != 1 {
		t.Fatalf("evicted = %d, want 1", evicted)
	}
	if _, err := store.Get("stale"); !errors.Is(err, ErrNotFound) {
		t.Error("stale session should be gone")
	}
	if _, err := store.Get("fresh"); err != nil {
		t.Error("fresh session should survive")
	}
}
