package bot

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// newTestDedupStore 시간 흐름을 직접 제어할 수 있는 테스트용 저장소를 생성합니다.
func newTestDedupStore() (*memoryDedupStore, *time.Time) {
	current := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	store := &memoryDedupStore{
		entries: make(map[string]time.Time),
		now:     func() time.Time { return current },
	}
	return store, &current
}

func TestMemoryDedupStore_SeenWithinTTL(t *testing.T) {
	store, _ := newTestDedupStore()

	assert.False(t, store.Seen("123:cb-1"), "등록 전에는 중복이 아니어야 함")

	store.MarkSeen("123:cb-1", 2*time.Second)
	assert.True(t, store.Seen("123:cb-1"), "TTL 이내에는 중복으로 판정되어야 함")
	assert.False(t, store.Seen("123:cb-2"), "다른 키는 영향을 받지 않아야 함")
}

func TestMemoryDedupStore_ExpiresAfterTTL(t *testing.T) {
	store, current := newTestDedupStore()

	store.MarkSeen("123:cb-1", 2*time.Second)

	*current = current.Add(2*time.Second + time.Millisecond)
	assert.False(t, store.Seen("123:cb-1"), "TTL 경과 후에는 중복이 아니어야 함")

	// 만료 판정 시 항목이 제거되므로 재등록이 가능해야 한다.
	store.MarkSeen("123:cb-1", 2*time.Second)
	assert.True(t, store.Seen("123:cb-1"))
}

func TestMemoryDedupStore_PurgeExpiredEntries(t *testing.T) {
	store, current := newTestDedupStore()

	// 정리 임계치만큼 항목을 채운다.
	for i := 0; i < purgeThreshold; i++ {
		store.MarkSeen(fmt.Sprintf("key-%d", i), time.Second)
	}
	assert.Len(t, store.entries, purgeThreshold)

	// 전부 만료시킨 뒤 새 항목을 등록하면 일괄 정리가 수행된다.
	*current = current.Add(time.Minute)
	store.MarkSeen("fresh", time.Second)

	assert.Len(t, store.entries, 1, "만료된 항목은 일괄 제거되어야 함")
	assert.True(t, store.Seen("fresh"))
}
