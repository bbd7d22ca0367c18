package relay

import (
	"sync"
	"testing"
	"time"
)

func TestCodeStore_PutAndTake(t *testing.T) {
	store := NewCodeStore(time.Minute)

	store.Put("state-1", "code-1")

	code, ok := store.Take("state-1")
	if !ok {
		t.Fatal("expected Take to find the stored code")
	}
	if code != "code-1" {
		t.Errorf("code = %q, want code-1", code)
	}
}

// 同じstateに対する2回目のTakeは必ず失敗すること（take-once）。
func TestCodeStore_TakeIsOneShot(t *testing.T) {
	store := NewCodeStore(time.Minute)

	store.Put("state-1", "code-1")

	if _, ok := store.Take("state-1"); !ok {
		t.Fatal("first Take should succeed")
	}
	if _, ok := store.Take("state-1"); ok {
		t.Error("second Take should fail")
	}
}

func TestCodeStore_TakeUnknownState(t *testing.T) {
	store := NewCodeStore(time.Minute)

	if code, ok := store.Take("never-stored"); ok || code != "" {
		t.Errorf("Take(unknown) = (%q, %v), want (\"\", false)", code, ok)
	}
}

func TestCodeStore_PutOverwrites(t *testing.T) {
	store := NewCodeStore(time.Minute)

	store.Put("state-1", "old-code")
	// 新しいリダイレクトが優先される
	store.Put("state-1", "new-code")

	code, ok := store.Take("state-1")
	if !ok || code != "new-code" {
		t.Errorf("Take() = (%q, %v), want (new-code, true)", code, ok)
	}
}

func TestCodeStore_IgnoresEmptyKeys(t *testing.T) {
	store := NewCodeStore(time.Minute)

	store.Put("", "code-1")
	store.Put("state-1", "")

	if _, ok := store.Take(""); ok {
		t.Error("empty state should never be stored")
	}
	if _, ok := store.Take("state-1"); ok {
		t.Error("empty code should never be stored")
	}
}

func TestCodeStore_ExpiredCodeIsGone(t *testing.T) {
	store := NewCodeStore(20 * time.Millisecond)

	store.Put("state-1", "code-1")
	time.Sleep(50 * time.Millisecond)

	if _, ok := store.Take("state-1"); ok {
		t.Error("expired code should not be returned")
	}
}

// 並行するTakeのうち成功するのは常に1つだけであること。
func TestCodeStore_ConcurrentTake_SingleWinner(t *testing.T) {
	store := NewCodeStore(time.Minute)
	store.Put("state-1", "code-1")

	const goroutines = 20
	var wg sync.WaitGroup
	results := make(chan bool, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := store.Take("state-1")
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for ok := range results {
		if ok {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
}
