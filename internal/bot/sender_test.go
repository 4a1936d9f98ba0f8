package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSender_SendText(t *testing.T) {
	client := newFakeClient()
	sender := NewSender(client)

	err := sender.SendText(context.Background(), 100, "안녕하세요")
	require.NoError(t, err)

	messages := client.sentMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, int64(100), messages[0].ChatID)
	assert.Equal(t, "안녕하세요", messages[0].Text)
	assert.Equal(t, tgbotapi.ModeHTML, messages[0].ParseMode)
}

func TestSender_SendTextSplitsLongMessage(t *testing.T) {
	client := newFakeClient()
	sender := NewSender(client)

	// 최대 길이를 초과하는 메시지는 여러 건으로 분할된다.
	long := strings.Repeat("가", messageMaxLength+10)

	err := sender.SendText(context.Background(), 100, long)
	require.NoError(t, err)

	messages := client.sentMessages()
	require.Len(t, messages, 2)
	assert.Equal(t, long, messages[0].Text+messages[1].Text, "분할된 조각을 이어 붙이면 원본과 같아야 함")
}

func TestSender_SendMenuAttachesKeyboardToLastChunk(t *testing.T) {
	client := newFakeClient()
	sender := NewSender(client)

	long := strings.Repeat("가", messageMaxLength+10)

	err := sender.SendMenu(context.Background(), 100, long, MenuOnlyKeyboard())
	require.NoError(t, err)

	messages := client.sentMessages()
	require.Len(t, messages, 2)
	assert.Nil(t, messages[0].ReplyMarkup, "키보드는 마지막 조각에만 첨부되어야 함")
	assert.NotNil(t, messages[1].ReplyMarkup)
}

func TestSender_SendFailureWrapped(t *testing.T) {
	client := newFakeClient()
	client.sendErr = errors.New("network down")
	sender := NewSender(client)

	err := sender.SendText(context.Background(), 100, "안녕하세요")
	assert.Error(t, err)
}

func TestSender_EditMenu(t *testing.T) {
	client := newFakeClient()
	sender := NewSender(client)

	err := sender.EditMenu(context.Background(), 100, 55, "수정된 메뉴", MenuOnlyKeyboard())
	require.NoError(t, err)

	calls := client.snapshot()
	require.Len(t, calls, 1)
	edit, ok := calls[0].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 55, edit.MessageID)
	assert.Equal(t, "수정된 메뉴", edit.Text)
}

func TestSender_AnswerCallbackFailureIsNonFatal(t *testing.T) {
	client := newFakeClient()
	client.requestErr = errors.New("callback expired")
	sender := NewSender(client)

	// 수신 확인 실패는 에러를 전파하지 않고 로그만 남긴다.
	assert.NotPanics(t, func() {
		sender.AnswerCallback("cb-1")
	})
	assert.Equal(t, 1, client.ackCount())
}
