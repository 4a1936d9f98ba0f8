package bot

import (
	"sync"
	"time"
)

// DedupStore 콜백 중복 제거 기록의 저장소 인터페이스입니다.
//
// 단일 프로세스에서는 메모리 기반 구현으로 충분하지만, 봇이 다중 인스턴스로
// 확장될 경우 분산 캐시 구현으로 교체할 수 있도록 라우터에 주입됩니다.
type DedupStore interface {
	// Seen 키가 현재 살아있는(만료되지 않은) 중복 기록인지 확인합니다.
	Seen(key string) bool

	// MarkSeen 키를 ttl 동안 살아있는 중복 기록으로 등록합니다.
	MarkSeen(key string, ttl time.Duration)
}

// purgeThreshold 만료 항목 일괄 정리를 수행하는 맵 크기 기준입니다.
const purgeThreshold = 256

// memoryDedupStore 프로세스 메모리에 만료 시각을 기록하는 DedupStore 구현체입니다.
//
// 백그라운드 청소 고루틴 없이, 등록 시점에 맵이 일정 크기를 넘으면 만료 항목을
// 일괄 제거하는 방식으로 동작합니다. 중복 제거는 최선 노력(Best-Effort)이며
// 정확성 보장 수단이 아니므로 이 정도 정밀도로 충분합니다.
type memoryDedupStore struct {
	mu      sync.Mutex
	entries map[string]time.Time

	// now 테스트에서 시간 흐름을 제어하기 위한 주입 지점입니다.
	now func() time.Time
}

// NewMemoryDedupStore 메모리 기반 DedupStore를 생성합니다.
func NewMemoryDedupStore() DedupStore {
	return &memoryDedupStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *memoryDedupStore) Seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, ok := s.entries[key]
	if !ok {
		return false
	}
	if s.now().After(deadline) {
		delete(s.entries, key)
		return false
	}
	return true
}

func (s *memoryDedupStore) MarkSeen(key string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= purgeThreshold {
		now := s.now()
		for k, deadline := range s.entries {
			if now.After(deadline) {
				delete(s.entries, k)
			}
		}
	}

	s.entries[key] = s.now().Add(ttl)
}
