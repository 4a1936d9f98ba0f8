// Package tts 외부 음성 합성 API로 텍스트를 OGG 음성으로 변환하여
// 보이스 메시지로 회신하는 기능 핸들러입니다.
package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dumoklab/dumok-bot/internal/bot"
	apperrors "github.com/dumoklab/dumok-bot/internal/pkg/errors"
)

const moduleKey = "tts"

const (
	actionMenu = "menu"
	actionSay  = "say"
)

const (
	requestTimeout = 30 * time.Second
	maxAudioSize   = 10 << 20 // 10MiB

	// maxTextLength 음성 합성에 허용되는 입력 텍스트의 최대 길이입니다.
	maxTextLength = 500
)

// Handler 음성 합성 기능 핸들러입니다.
//
// "말하기" 버튼을 누르면 사용자를 입력 대기 상태로 전환하고, 다음 일반 텍스트
// 메시지를 합성 대상으로 수락합니다.
type Handler struct {
	sender     *bot.Sender
	httpClient *http.Client
	apiURL     string

	mu      sync.Mutex
	waiting map[int64]bool
}

// New 음성 합성 핸들러를 생성합니다.
func New(sender *bot.Sender, apiURL string) *Handler {
	return &Handler{
		sender:     sender,
		httpClient: &http.Client{Timeout: requestTimeout},
		apiURL:     apiURL,
		waiting:    make(map[int64]bool),
	}
}

func (h *Handler) ModuleKey() string {
	return moduleKey
}

func (h *Handler) MenuItem() bot.MenuItem {
	return bot.MenuItem{
		Label:          "음성 합성",
		Icon:           "🔊",
		CallbackTarget: bot.CallbackData(moduleKey, actionMenu),
	}
}

// HandleMessage 입력 대기 상태인 사용자의 텍스트를 합성 대상으로 수락합니다.
func (h *Handler) HandleMessage(ctx context.Context, message *tgbotapi.Message) (bool, error) {
	userID := message.From.ID

	h.mu.Lock()
	waiting := h.waiting[userID]
	if waiting {
		delete(h.waiting, userID)
	}
	h.mu.Unlock()

	if !waiting {
		return false, nil
	}

	chatID := message.Chat.ID

	text := strings.TrimSpace(message.Text)
	if text == "" || len([]rune(text)) > maxTextLength {
		return true, h.sender.SendMenu(ctx, chatID,
			fmt.Sprintf("변환할 텍스트는 1~%d자로 입력해 주세요.", maxTextLength), h.menuKeyboard())
	}

	audio, err := h.synthesize(ctx, text)
	if err != nil {
		return true, err
	}

	return true, h.sender.SendVoice(ctx, chatID, "tts.ogg", audio)
}

func (h *Handler) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, action string, _ []string) (bool, error) {
	if callback.Message == nil {
		return false, nil
	}
	chatID := callback.Message.Chat.ID
	userID := callback.From.ID

	switch action {
	case actionMenu:
		return true, h.sender.SendMenu(ctx, chatID,
			"<b>🔊 음성 합성</b>\n\n텍스트를 음성 메시지로 변환해 드립니다.", h.menuKeyboard())

	case actionSay:
		h.mu.Lock()
		h.waiting[userID] = true
		h.mu.Unlock()

		return true, h.sender.SendText(ctx, chatID, "음성으로 변환할 텍스트를 입력해 주세요.")

	default:
		return false, nil
	}
}

// synthesize 음성 합성 API를 호출하여 OGG 오디오 데이터를 반환합니다.
func (h *Handler) synthesize(ctx context.Context, text string) ([]byte, error) {
	form := url.Values{}
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "음성 합성 요청 생성에 실패했습니다")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "음성 합성 API 호출에 실패했습니다")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Newf(apperrors.Unavailable, "음성 합성 API가 비정상 응답을 반환했습니다 (status: %d)", resp.StatusCode)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioSize))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "음성 합성 응답 읽기에 실패했습니다")
	}
	if len(audio) == 0 {
		return nil, apperrors.New(apperrors.ExecutionFailed, "음성 합성 결과가 비어있습니다")
	}
	return audio, nil
}

func (h *Handler) menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return bot.BuildKeyboard([]bot.MenuItem{
		{Label: "말하기", Icon: "🔊", CallbackTarget: bot.CallbackData(moduleKey, actionSay)},
	}, 0, true)
}
