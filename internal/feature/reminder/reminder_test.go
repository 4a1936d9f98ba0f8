package reminder

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumoklab/dumok-bot/internal/bot"
	"github.com/dumoklab/dumok-bot/internal/bot/mocks"
)

func newTestHandler(t *testing.T) (*Handler, *mocks.RecordingClient) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	client := mocks.NewRecordingClient()
	handler := New(db, bot.NewSender(client))
	require.NoError(t, handler.Initialize(context.Background()))
	t.Cleanup(handler.Cleanup)

	return handler, client
}

func testCallback(userID, chatID int64) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{
			MessageID: 1,
			Chat:      &tgbotapi.Chat{ID: chatID},
		},
	}
}

func testMessage(userID, chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
	}
}

func TestParseDefinition(t *testing.T) {
	tests := []struct {
		name            string
		input           string
		expectedSpec    string
		expectedMessage string
		expectedOK      bool
	}{
		{"정상 입력", "0 9 * * 1-5 | 아침 회의", "0 9 * * 1-5", "아침 회의", true},
		{"공백 정리", "  * * * * *  |  물 마시기  ", "* * * * *", "물 마시기", true},
		{"구분자 없음", "0 9 * * 1-5 아침 회의", "", "", false},
		{"빈 메시지", "0 9 * * * | ", "", "", false},
		{"빈 표현식", " | 메시지만", "", "", false},
		{"메시지에 구분자 포함", "0 9 * * * | A | B", "0 9 * * *", "A | B", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, message, ok := parseDefinition(tt.input)
			assert.Equal(t, tt.expectedOK, ok)
			assert.Equal(t, tt.expectedSpec, spec)
			assert.Equal(t, tt.expectedMessage, message)
		})
	}
}

func TestHandler_AddFlow(t *testing.T) {
	handler, client := newTestHandler(t)
	ctx := context.Background()

	replied, err := handler.HandleCallback(ctx, testCallback(7, 100), actionAdd, nil)
	require.NoError(t, err)
	assert.True(t, replied)

	claimed, err := handler.HandleMessage(ctx, testMessage(7, 100, "0 9 * * 1-5 | 아침 회의"))
	require.NoError(t, err)
	assert.True(t, claimed)

	last := client.LastMessage()
	require.NotNil(t, last)
	assert.Contains(t, last.Text, "등록되었습니다")
	assert.Contains(t, last.Text, "아침 회의")

	// 크론 엔진에도 등록되어 있어야 한다.
	handler.mu.Lock()
	assert.Len(t, handler.jobs, 1)
	handler.mu.Unlock()
}

func TestHandler_AddRejectsInvalidCronSpec(t *testing.T) {
	handler, client := newTestHandler(t)
	ctx := context.Background()

	_, err := handler.HandleCallback(ctx, testCallback(7, 100), actionAdd, nil)
	require.NoError(t, err)

	claimed, err := handler.HandleMessage(ctx, testMessage(7, 100, "매일 아침 | 회의"))
	require.NoError(t, err)
	assert.True(t, claimed)

	last := client.LastMessage()
	require.NotNil(t, last)
	assert.Contains(t, last.Text, "올바르지 않습니다")

	handler.mu.Lock()
	assert.Empty(t, handler.jobs, "잘못된 표현식은 등록되지 않아야 함")
	handler.mu.Unlock()
}

func TestHandler_Delete(t *testing.T) {
	handler, client := newTestHandler(t)
	ctx := context.Background()

	_, err := handler.HandleCallback(ctx, testCallback(7, 100), actionAdd, nil)
	require.NoError(t, err)
	_, err = handler.HandleMessage(ctx, testMessage(7, 100, "0 9 * * * | 회의"))
	require.NoError(t, err)

	replied, err := handler.HandleCallback(ctx, testCallback(7, 100), actionDelete, []string{"1"})
	require.NoError(t, err)
	assert.True(t, replied)

	last := client.LastMessage()
	require.NotNil(t, last)
	assert.Contains(t, last.Text, "삭제되었습니다")

	handler.mu.Lock()
	assert.Empty(t, handler.jobs)
	handler.mu.Unlock()
}

func TestHandler_DeleteScopedByUser(t *testing.T) {
	handler, client := newTestHandler(t)
	ctx := context.Background()

	_, err := handler.HandleCallback(ctx, testCallback(7, 100), actionAdd, nil)
	require.NoError(t, err)
	_, err = handler.HandleMessage(ctx, testMessage(7, 100, "0 9 * * * | 회의"))
	require.NoError(t, err)

	// 다른 사용자는 삭제할 수 없다.
	replied, err := handler.HandleCallback(ctx, testCallback(8, 100), actionDelete, []string{"1"})
	require.NoError(t, err)
	assert.True(t, replied)

	last := client.LastMessage()
	require.NotNil(t, last)
	assert.Contains(t, last.Text, "찾을 수 없습니다")
}

func TestHandler_InitializeReloadsPersistedReminders(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	client := mocks.NewRecordingClient()
	sender := bot.NewSender(client)

	// 첫 번째 핸들러로 알림을 등록한다.
	first := New(db, sender)
	require.NoError(t, first.Initialize(context.Background()))
	_, err = first.HandleCallback(context.Background(), testCallback(7, 100), actionAdd, nil)
	require.NoError(t, err)
	_, err = first.HandleMessage(context.Background(), testMessage(7, 100, "0 9 * * * | 회의"))
	require.NoError(t, err)
	first.Cleanup()

	// 두 번째 핸들러(재시작 시뮬레이션)는 저장된 알림을 다시 로드해야 한다.
	second := New(db, sender)
	require.NoError(t, second.Initialize(context.Background()))
	t.Cleanup(second.Cleanup)

	second.mu.Lock()
	defer second.mu.Unlock()
	assert.Len(t, second.jobs, 1, "재시작 후 영속화된 알림이 복원되어야 함")
}

func TestHandler_RejectsTooLongMessage(t *testing.T) {
	handler, _ := newTestHandler(t)
	ctx := context.Background()

	_, err := handler.HandleCallback(ctx, testCallback(7, 100), actionAdd, nil)
	require.NoError(t, err)

	claimed, err := handler.HandleMessage(ctx,
		testMessage(7, 100, "0 9 * * * | "+strings.Repeat("가", maxMessageLength+1)))
	require.NoError(t, err)
	assert.True(t, claimed)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Empty(t, handler.jobs)
}
