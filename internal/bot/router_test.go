package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// routerTestEnv 콜백 라우터 테스트에 필요한 의존성 묶음입니다.
type routerTestEnv struct {
	client   *fakeClient
	registry *Registry
	router   *CallbackRouter
	handler  *stubHandler
}

func newRouterTestEnv(t *testing.T, middlewares ...Middleware) *routerTestEnv {
	t.Helper()

	client := newFakeClient()
	sender := NewSender(client)

	handler := &stubHandler{key: "todo"}
	registry, err := NewRegistry(context.Background(), []Registration{
		{Handler: &stubHandler{key: ModuleKeySystem}, Priority: 0, Required: true, Enabled: true},
		{Handler: handler, Priority: 10, Enabled: true},
	})
	require.NoError(t, err)

	router := NewCallbackRouter(registry, sender, NewMemoryDedupStore(), 2*time.Second, middlewares...)

	return &routerTestEnv{
		client:   client,
		registry: registry,
		router:   router,
		handler:  handler,
	}
}

func TestCallbackRouter_AckBeforeInvoke(t *testing.T) {
	env := newRouterTestEnv(t)

	invoked := false
	env.handler.callbackFn = func(_ context.Context, _ *tgbotapi.CallbackQuery, action string, params []string) (bool, error) {
		invoked = true

		// 핸들러 호출 시점에 수신 확인이 이미 전송되어 있어야 한다.
		assert.Equal(t, 1, env.client.ackCount())
		assert.Equal(t, "delete", action)
		assert.Equal(t, []string{"42"}, params)
		return true, nil
	}

	env.router.Route(context.Background(), newTestCallback("cb-1", 7, 100, "todo:delete:42"))

	assert.True(t, invoked)
	assert.Equal(t, 1, env.client.ackCount(), "수신 확인은 정확히 한 번만 전송되어야 함")
	assert.Empty(t, env.client.sentMessages(), "핸들러가 응답한 경우 라우터는 대체 응답을 보내지 않아야 함")
}

func TestCallbackRouter_EmptyDataAckOnly(t *testing.T) {
	env := newRouterTestEnv(t)

	env.router.Route(context.Background(), newTestCallback("cb-1", 7, 100, ""))

	assert.Equal(t, 1, env.client.ackCount())
	assert.Empty(t, env.client.sentMessages(), "빈 콜백 데이터는 수신 확인만 받고 조용히 무시되어야 함")
}

func TestCallbackRouter_UnroutableModuleKey(t *testing.T) {
	env := newRouterTestEnv(t)

	env.router.Route(context.Background(), newTestCallback("cb-1", 7, 100, "ghost:menu"))

	assert.Equal(t, 1, env.client.ackCount())

	messages := env.client.sentMessages()
	require.Len(t, messages, 1, "라우팅 실패 시 기능 안내 메시지가 전송되어야 함")
	assert.Contains(t, messages[0].Text, "기능을 찾을 수 없습니다")
	require.NotNil(t, messages[0].ReplyMarkup, "안내 메시지에는 메인 메뉴 복귀 버튼이 포함되어야 함")
}

func TestCallbackRouter_MainAliasRoutesToSystem(t *testing.T) {
	client := newFakeClient()
	sender := NewSender(client)

	systemInvoked := false
	systemStub := &stubHandler{
		key: ModuleKeySystem,
		callbackFn: func(_ context.Context, _ *tgbotapi.CallbackQuery, action string, _ []string) (bool, error) {
			systemInvoked = true
			assert.Equal(t, "menu", action)
			return true, nil
		},
	}
	registry, err := NewRegistry(context.Background(), []Registration{
		{Handler: systemStub, Priority: 0, Required: true, Enabled: true},
	})
	require.NoError(t, err)

	router := NewCallbackRouter(registry, sender, NewMemoryDedupStore(), 2*time.Second)
	router.Route(context.Background(), newTestCallback("cb-1", 7, 100, "main"))

	assert.True(t, systemInvoked, "'main' 콜백은 시스템 핸들러로 라우팅되어야 함")
}

func TestCallbackRouter_DedupSuppressesRetransmission(t *testing.T) {
	env := newRouterTestEnv(t)

	invocations := 0
	env.handler.callbackFn = func(_ context.Context, _ *tgbotapi.CallbackQuery, _ string, _ []string) (bool, error) {
		invocations++
		return true, nil
	}

	// 동일한 콜백 ID의 재전송 → 두 번째는 수신 확인만 받는다.
	env.router.Route(context.Background(), newTestCallback("cb-1", 7, 100, "todo:menu"))
	env.router.Route(context.Background(), newTestCallback("cb-1", 7, 100, "todo:menu"))

	assert.Equal(t, 1, invocations, "중복 콜백은 핸들러를 다시 호출하지 않아야 함")
	assert.Equal(t, 2, env.client.ackCount(), "중복 콜백도 수신 확인은 받아야 함")
}

func TestCallbackRouter_DedupScopedByUser(t *testing.T) {
	env := newRouterTestEnv(t)

	invocations := 0
	env.handler.callbackFn = func(_ context.Context, _ *tgbotapi.CallbackQuery, _ string, _ []string) (bool, error) {
		invocations++
		return true, nil
	}

	env.router.Route(context.Background(), newTestCallback("cb-1", 7, 100, "todo:menu"))
	env.router.Route(context.Background(), newTestCallback("cb-1", 8, 100, "todo:menu"))

	assert.Equal(t, 2, invocations, "다른 사용자의 동일 콜백 ID는 중복으로 취급되지 않아야 함")
}

func TestCallbackRouter_HandlerErrorFallback(t *testing.T) {
	env := newRouterTestEnv(t)

	env.handler.callbackFn = func(_ context.Context, _ *tgbotapi.CallbackQuery, _ string, _ []string) (bool, error) {
		return false, errors.New("처리 실패")
	}

	env.router.Route(context.Background(), newTestCallback("cb-1", 7, 100, "todo:menu"))

	assert.Equal(t, 1, env.client.ackCount())

	messages := env.client.sentMessages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Text, "오류가 발생")
}

func TestCallbackRouter_HandlerPanicRecovered(t *testing.T) {
	env := newRouterTestEnv(t)

	env.handler.callbackFn = func(_ context.Context, _ *tgbotapi.CallbackQuery, _ string, _ []string) (bool, error) {
		panic("핸들러 버그")
	}

	assert.NotPanics(t, func() {
		env.router.Route(context.Background(), newTestCallback("cb-1", 7, 100, "todo:menu"))
	})

	messages := env.client.sentMessages()
	require.Len(t, messages, 1, "panic도 에러와 동일하게 사용자 안내로 변환되어야 함")
	assert.Contains(t, messages[0].Text, "오류가 발생")
}

func TestCallbackRouter_NoReplyFallback(t *testing.T) {
	env := newRouterTestEnv(t)

	// 핸들러가 응답 없이 false를 반환하면 라우터가 대신 응답한다.
	env.handler.callbackFn = func(_ context.Context, _ *tgbotapi.CallbackQuery, _ string, _ []string) (bool, error) {
		return false, nil
	}

	env.router.Route(context.Background(), newTestCallback("cb-1", 7, 100, "todo:unknown_action"))

	messages := env.client.sentMessages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Text, "알 수 없는 요청")
}

func TestCallbackRouter_NilMessageCallback(t *testing.T) {
	env := newRouterTestEnv(t)

	// 원본 메시지가 만료된 콜백도 수신 확인은 받아야 한다.
	callback := &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: &tgbotapi.User{ID: 7},
		Data: "ghost:menu",
	}

	assert.NotPanics(t, func() {
		env.router.Route(context.Background(), callback)
	})
	assert.Equal(t, 1, env.client.ackCount())
	assert.Empty(t, env.client.sentMessages(), "응답할 채팅방을 알 수 없으면 안내 전송은 생략됨")
}

func TestCallbackRouter_AuthMiddlewareBlocks(t *testing.T) {
	env := newRouterTestEnv(t, WithAuth([]int64{200}))

	invoked := false
	env.handler.callbackFn = func(_ context.Context, _ *tgbotapi.CallbackQuery, _ string, _ []string) (bool, error) {
		invoked = true
		return true, nil
	}

	env.router.Route(context.Background(), newTestCallback("cb-1", 7, 100, "todo:menu"))

	assert.False(t, invoked, "허용 목록에 없는 채팅방의 콜백은 핸들러에 도달하지 않아야 함")
	assert.Equal(t, 1, env.client.ackCount(), "차단된 콜백도 수신 확인은 받아야 함")
	assert.Empty(t, env.client.sentMessages())
}

func TestCallbackRouter_RateLimitMiddleware(t *testing.T) {
	env := newRouterTestEnv(t, WithRateLimit(1))

	invocations := 0
	env.handler.callbackFn = func(_ context.Context, _ *tgbotapi.CallbackQuery, _ string, _ []string) (bool, error) {
		invocations++
		return true, nil
	}

	// 버스트(2)를 초과하는 연속 호출은 차단된다. 중복 제거를 피하기 위해 콜백 ID를 달리한다.
	for _, id := range []string{"cb-1", "cb-2", "cb-3", "cb-4"} {
		env.router.Route(context.Background(), newTestCallback(id, 7, 100, "todo:menu"))
	}

	assert.LessOrEqual(t, invocations, 2, "속도 제한을 초과한 콜백은 무시되어야 함")
	assert.GreaterOrEqual(t, invocations, 1)
}
