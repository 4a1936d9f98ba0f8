package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeClient 테스트용 텔레그램 클라이언트 구현체입니다.
//
// 전송된 Chattable을 호출 순서대로 기록하여, 수신 확인(ACK)과 응답 메시지의
// 발생 여부 및 순서를 검증할 수 있습니다.
type fakeClient struct {
	mu    sync.Mutex
	calls []tgbotapi.Chattable

	sendErr    error
	requestErr error

	updatesC chan tgbotapi.Update
	stopOnce sync.Once
	stopped  bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		updatesC: make(chan tgbotapi.Update, 16),
	}
}

func (c *fakeClient) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "dumokbot_test"}
}

func (c *fakeClient) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.updatesC
}

func (c *fakeClient) Send(chattable tgbotapi.Chattable) (tgbotapi.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, chattable)
	return tgbotapi.Message{MessageID: len(c.calls)}, c.sendErr
}

func (c *fakeClient) Request(chattable tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, chattable)
	if c.requestErr != nil {
		return nil, c.requestErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (c *fakeClient) StopReceivingUpdates() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	c.stopOnce.Do(func() { close(c.updatesC) })
}

// snapshot 기록된 호출 목록의 복사본을 반환합니다.
func (c *fakeClient) snapshot() []tgbotapi.Chattable {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]tgbotapi.Chattable, len(c.calls))
	copy(out, c.calls)
	return out
}

// ackCount 전송된 콜백 수신 확인의 개수를 반환합니다.
func (c *fakeClient) ackCount() int {
	count := 0
	for _, call := range c.snapshot() {
		if _, ok := call.(tgbotapi.CallbackConfig); ok {
			count++
		}
	}
	return count
}

// sentMessages 전송된 일반 메시지 목록을 반환합니다.
func (c *fakeClient) sentMessages() []tgbotapi.MessageConfig {
	var out []tgbotapi.MessageConfig
	for _, call := range c.snapshot() {
		if msg, ok := call.(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

// stubHandler 테스트용 기능 핸들러 구현체입니다.
type stubHandler struct {
	key string

	initErr     error
	initialized bool
	cleaned     bool

	messageFn  func(ctx context.Context, message *tgbotapi.Message) (bool, error)
	callbackFn func(ctx context.Context, callback *tgbotapi.CallbackQuery, action string, params []string) (bool, error)
}

func (h *stubHandler) ModuleKey() string {
	return h.key
}

func (h *stubHandler) MenuItem() MenuItem {
	return MenuItem{Label: h.key, CallbackTarget: CallbackData(h.key, defaultAction)}
}

func (h *stubHandler) Initialize(_ context.Context) error {
	if h.initErr != nil {
		return h.initErr
	}
	h.initialized = true
	return nil
}

func (h *stubHandler) Cleanup() {
	h.cleaned = true
}

func (h *stubHandler) HandleMessage(ctx context.Context, message *tgbotapi.Message) (bool, error) {
	if h.messageFn == nil {
		return false, nil
	}
	return h.messageFn(ctx, message)
}

func (h *stubHandler) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, action string, params []string) (bool, error) {
	if h.callbackFn == nil {
		return false, nil
	}
	return h.callbackFn(ctx, callback, action, params)
}

// newTestCallback 테스트용 콜백 쿼리를 생성합니다.
func newTestCallback(id string, userID, chatID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   id,
		From: &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{
			MessageID: 100,
			Chat:      &tgbotapi.Chat{ID: chatID},
		},
		Data: data,
	}
}

// newTestMessage 테스트용 일반 텍스트 메시지를 생성합니다.
func newTestMessage(userID, chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
	}
}
