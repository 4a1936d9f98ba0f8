package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumoklab/dumok-bot/internal/bot"
	"github.com/dumoklab/dumok-bot/internal/bot/mocks"
)

const weatherResponse = `{
	"current_condition": [{
		"temp_C": "23",
		"FeelsLikeC": "25",
		"humidity": "60",
		"windspeedKmph": "11",
		"weatherDesc": [{"value": "Partly cloudy"}]
	}]
}`

func newTestHandler(t *testing.T, apiHandler http.HandlerFunc) (*Handler, *mocks.RecordingClient) {
	t.Helper()

	server := httptest.NewServer(apiHandler)
	t.Cleanup(server.Close)

	client := mocks.NewRecordingClient()
	handler := New(bot.NewSender(client), server.URL, "Seoul")

	return handler, client
}

func testCallback(chatID int64) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{
			MessageID: 1,
			Chat:      &tgbotapi.Chat{ID: chatID},
		},
	}
}

func TestHandler_Now(t *testing.T) {
	var requestedPath string
	handler, client := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Write([]byte(weatherResponse))
	})

	replied, err := handler.HandleCallback(context.Background(), testCallback(100), actionNow, []string{"Busan"})
	require.NoError(t, err)
	assert.True(t, replied)

	assert.Equal(t, "/Busan", requestedPath)

	last := client.LastMessage()
	require.NotNil(t, last)
	assert.Contains(t, last.Text, "Busan")
	assert.Contains(t, last.Text, "23℃")
	assert.Contains(t, last.Text, "Partly cloudy")
	assert.Contains(t, last.Text, "60%")
}

func TestHandler_NowUsesDefaultCity(t *testing.T) {
	var requestedPath string
	handler, client := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Write([]byte(weatherResponse))
	})

	replied, err := handler.HandleCallback(context.Background(), testCallback(100), actionNow, nil)
	require.NoError(t, err)
	assert.True(t, replied)
	assert.Equal(t, "/Seoul", requestedPath, "도시 미지정 시 기본 도시로 조회해야 함")

	last := client.LastMessage()
	require.NotNil(t, last)
	assert.Contains(t, last.Text, "Seoul")
}

func TestHandler_APIErrorPropagated(t *testing.T) {
	handler, client := newTestHandler(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	replied, err := handler.HandleCallback(context.Background(), testCallback(100), actionNow, nil)
	assert.True(t, replied)
	assert.Error(t, err, "API 장애는 에러로 전파되어 라우터가 안내를 보내야 함")
	assert.Empty(t, client.SentMessages())
}

func TestHandler_MalformedResponse(t *testing.T) {
	handler, _ := newTestHandler(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"unexpected": true}`))
	})

	_, err := handler.HandleCallback(context.Background(), testCallback(100), actionNow, nil)
	assert.Error(t, err)
}

func TestHandler_Menu(t *testing.T) {
	handler, client := newTestHandler(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(weatherResponse))
	})

	replied, err := handler.HandleCallback(context.Background(), testCallback(100), actionMenu, nil)
	require.NoError(t, err)
	assert.True(t, replied)

	last := client.LastMessage()
	require.NotNil(t, last)
	assert.Contains(t, last.Text, "도시를 선택")
}
