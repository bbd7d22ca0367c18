// Package relay はディープリンクで受け取った認可コードの一時中継を提供する。
// コードはstateキーの下に短いTTLで保持され、1回読み取ると消える。
package relay

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CodeStore は認可コードのワンショットストア。
// Putで格納し、Takeで取得と同時に削除する（take-once）。
// 同じstateに対する2回目のTakeは必ず空を返す。
type CodeStore struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

// NewCodeStore はCodeStoreを生成する。
// ttlは未読のままのコードが破棄されるまでの時間。
func NewCodeStore(ttl time.Duration) *CodeStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CodeStore{
		cache: gocache.New(ttl, ttl),
	}
}

// Put はstateキーの下に認可コードを格納する。
// 同じstateへの再格納は上書きする（新しいリダイレクトが優先）。
func (s *CodeStore) Put(state, code string) {
	if state == "" || code == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.SetDefault(state, code)
}

// Take はstateキーの認可コードを取得し、同時に削除する。
// 取得と削除はロック下で行うため、並行するTakeのうち
// 成功するのは常に1つだけ。存在しない・期限切れの場合は("", false)。
func (s *CodeStore) Take(state string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(state)
	if !ok {
		return "", false
	}
	s.cache.Delete(state)

	code, ok := v.(string)
	if !ok || code == "" {
		return "", false
	}
	return code, true
}
