package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_ResolveAndAlias(t *testing.T) {
	systemStub := &stubHandler{key: ModuleKeySystem}
	todoStub := &stubHandler{key: "todo"}

	registry, err := NewRegistry(context.Background(), []Registration{
		{Handler: systemStub, Priority: 0, Required: true, Enabled: true},
		{Handler: todoStub, Priority: 10, Enabled: true},
	})
	require.NoError(t, err)

	resolved, ok := registry.Resolve("todo")
	require.True(t, ok)
	assert.Same(t, todoStub, resolved)

	// "main" 별칭은 시스템 핸들러로 재작성된다.
	resolved, ok = registry.Resolve(mainModuleAlias)
	require.True(t, ok)
	assert.Same(t, systemStub, resolved)

	_, ok = registry.Resolve("unknown")
	assert.False(t, ok)
}

func TestNewRegistry_RequiredInitFailureAborts(t *testing.T) {
	registry, err := NewRegistry(context.Background(), []Registration{
		{Handler: &stubHandler{key: ModuleKeySystem}, Priority: 0, Required: true, Enabled: true},
		{Handler: &stubHandler{key: "todo", initErr: errors.New("db down")}, Priority: 10, Required: true, Enabled: true},
	})

	assert.Error(t, err, "필수 기능의 초기화 실패는 부트스트랩을 중단시켜야 함")
	assert.Nil(t, registry)
}

func TestNewRegistry_OptionalInitFailureSkips(t *testing.T) {
	broken := &stubHandler{key: "weather", initErr: errors.New("api unreachable")}

	registry, err := NewRegistry(context.Background(), []Registration{
		{Handler: &stubHandler{key: ModuleKeySystem}, Priority: 0, Required: true, Enabled: true},
		{Handler: &stubHandler{key: "todo"}, Priority: 10, Enabled: true},
		{Handler: broken, Priority: 60, Enabled: true},
	})
	require.NoError(t, err, "선택 기능의 초기화 실패는 부트스트랩을 중단시키지 않아야 함")

	_, ok := registry.Resolve("weather")
	assert.False(t, ok, "초기화에 실패한 선택 기능은 레지스트리에서 제외되어야 함")

	_, ok = registry.Resolve("todo")
	assert.True(t, ok)
}

func TestNewRegistry_DisabledSkipped(t *testing.T) {
	registry, err := NewRegistry(context.Background(), []Registration{
		{Handler: &stubHandler{key: ModuleKeySystem}, Priority: 0, Required: true, Enabled: true},
		{Handler: &stubHandler{key: "timer"}, Priority: 40, Enabled: false},
	})
	require.NoError(t, err)

	_, ok := registry.Resolve("timer")
	assert.False(t, ok)
}

func TestNewRegistry_DuplicateKeyRejected(t *testing.T) {
	_, err := NewRegistry(context.Background(), []Registration{
		{Handler: &stubHandler{key: ModuleKeySystem}, Priority: 0, Required: true, Enabled: true},
		{Handler: &stubHandler{key: "todo"}, Priority: 10, Enabled: true},
		{Handler: &stubHandler{key: "todo"}, Priority: 20, Enabled: true},
	})

	assert.Error(t, err)
}

func TestNewRegistry_MainKeyReserved(t *testing.T) {
	_, err := NewRegistry(context.Background(), []Registration{
		{Handler: &stubHandler{key: ModuleKeySystem}, Priority: 0, Required: true, Enabled: true},
		{Handler: &stubHandler{key: mainModuleAlias}, Priority: 10, Enabled: true},
	})

	assert.Error(t, err, "'main'은 별칭으로 예약되어 있으므로 등록이 거부되어야 함")
}

func TestNewRegistry_SystemHandlerRequired(t *testing.T) {
	_, err := NewRegistry(context.Background(), []Registration{
		{Handler: &stubHandler{key: "todo"}, Priority: 10, Enabled: true},
	})

	assert.Error(t, err, "시스템 핸들러 없이는 레지스트리를 구성할 수 없어야 함")
}

func TestRegistry_OrderedByPriority(t *testing.T) {
	registry, err := NewRegistry(context.Background(), []Registration{
		{Handler: &stubHandler{key: "reminder"}, Priority: 50, Enabled: true},
		{Handler: &stubHandler{key: ModuleKeySystem}, Priority: 0, Required: true, Enabled: true},
		{Handler: &stubHandler{key: "todo"}, Priority: 10, Enabled: true},
	})
	require.NoError(t, err)

	var keys []string
	for _, h := range registry.Ordered() {
		keys = append(keys, h.ModuleKey())
	}
	assert.Equal(t, []string{ModuleKeySystem, "todo", "reminder"}, keys)
}

func TestRegistry_MenuItemsExcludeSystem(t *testing.T) {
	registry, err := NewRegistry(context.Background(), []Registration{
		{Handler: &stubHandler{key: ModuleKeySystem}, Priority: 0, Required: true, Enabled: true},
		{Handler: &stubHandler{key: "todo"}, Priority: 10, Enabled: true},
		{Handler: &stubHandler{key: "leave"}, Priority: 20, Enabled: true},
	})
	require.NoError(t, err)

	items := registry.MenuItems()
	require.Len(t, items, 2)
	assert.Equal(t, "todo", items[0].Label)
	assert.Equal(t, "leave", items[1].Label)
}

func TestRegistry_CleanupReverseOrder(t *testing.T) {
	first := &stubHandler{key: ModuleKeySystem}
	second := &stubHandler{key: "todo"}

	registry, err := NewRegistry(context.Background(), []Registration{
		{Handler: first, Priority: 0, Required: true, Enabled: true},
		{Handler: second, Priority: 10, Enabled: true},
	})
	require.NoError(t, err)

	registry.Cleanup()

	assert.True(t, first.cleaned)
	assert.True(t, second.cleaned)
}
