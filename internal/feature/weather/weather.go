// Package weather 외부 날씨 API를 조회하여 현재 날씨를 안내하는 기능 핸들러입니다.
//
// wttr.in의 JSON 포맷(j1)을 기준으로 응답을 해석하며, API 주소는 설정으로
// 교체할 수 있습니다.
package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tidwall/gjson"

	"github.com/dumoklab/dumok-bot/internal/bot"
	apperrors "github.com/dumoklab/dumok-bot/internal/pkg/errors"
)

const moduleKey = "weather"

const (
	actionMenu = "menu"
	actionNow  = "now"
)

const (
	requestTimeout  = 10 * time.Second
	maxResponseSize = 1 << 20 // 1MiB
)

// Handler 날씨 기능 핸들러입니다.
type Handler struct {
	sender      *bot.Sender
	httpClient  *http.Client
	apiURL      string
	defaultCity string
}

// New 날씨 핸들러를 생성합니다.
func New(sender *bot.Sender, apiURL, defaultCity string) *Handler {
	return &Handler{
		sender:      sender,
		httpClient:  &http.Client{Timeout: requestTimeout},
		apiURL:      apiURL,
		defaultCity: defaultCity,
	}
}

func (h *Handler) ModuleKey() string {
	return moduleKey
}

func (h *Handler) MenuItem() bot.MenuItem {
	return bot.MenuItem{
		Label:          "날씨",
		Icon:           "🌤",
		CallbackTarget: bot.CallbackData(moduleKey, actionMenu),
	}
}

// HandleMessage 날씨 기능은 일반 텍스트 메시지를 수락하지 않습니다.
func (h *Handler) HandleMessage(_ context.Context, _ *tgbotapi.Message) (bool, error) {
	return false, nil
}

func (h *Handler) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, action string, params []string) (bool, error) {
	if callback.Message == nil {
		return false, nil
	}
	chatID := callback.Message.Chat.ID

	switch action {
	case actionMenu:
		return true, h.sender.SendMenu(ctx, chatID, "<b>🌤 날씨</b>\n\n조회할 도시를 선택해 주세요.", h.menuKeyboard())

	case actionNow:
		city := h.defaultCity
		if len(params) > 0 && params[0] != "" {
			city = params[0]
		}
		return true, h.sendCurrent(ctx, chatID, city)

	default:
		return false, nil
	}
}

// sendCurrent 도시의 현재 날씨를 조회하여 전송합니다.
func (h *Handler) sendCurrent(ctx context.Context, chatID int64, city string) error {
	body, err := h.fetch(ctx, city)
	if err != nil {
		return err
	}

	current := gjson.GetBytes(body, "current_condition.0")
	if !current.Exists() {
		return apperrors.New(apperrors.ParsingFailed, "날씨 응답에서 현재 날씨 정보를 찾을 수 없습니다")
	}

	text := fmt.Sprintf(
		"<b>🌤 %s 현재 날씨</b>\n\n"+
			"상태: %s\n"+
			"기온: %s℃ (체감 %s℃)\n"+
			"습도: %s%%\n"+
			"풍속: %skm/h",
		city,
		current.Get("weatherDesc.0.value").String(),
		current.Get("temp_C").String(),
		current.Get("FeelsLikeC").String(),
		current.Get("humidity").String(),
		current.Get("windspeedKmph").String(),
	)

	return h.sender.SendMenu(ctx, chatID, text, h.menuKeyboard())
}

// fetch 날씨 API를 호출하여 응답 본문을 반환합니다.
func (h *Handler) fetch(ctx context.Context, city string) ([]byte, error) {
	requestURL := fmt.Sprintf("%s/%s?format=j1", h.apiURL, url.PathEscape(city))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "날씨 API 요청 생성에 실패했습니다")
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "날씨 API 호출에 실패했습니다")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Newf(apperrors.Unavailable, "날씨 API가 비정상 응답을 반환했습니다 (status: %d)", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "날씨 API 응답 읽기에 실패했습니다")
	}
	return body, nil
}

func (h *Handler) menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return bot.BuildKeyboard([]bot.MenuItem{
		{Label: h.defaultCity, Icon: "📍", CallbackTarget: bot.CallbackData(moduleKey, actionNow)},
		{Label: "서울", Icon: "🏙", CallbackTarget: bot.CallbackData(moduleKey, actionNow, "Seoul")},
		{Label: "부산", Icon: "🌊", CallbackTarget: bot.CallbackData(moduleKey, actionNow, "Busan")},
		{Label: "제주", Icon: "🏝", CallbackTarget: bot.CallbackData(moduleKey, actionNow, "Jeju")},
	}, 0, true)
}
