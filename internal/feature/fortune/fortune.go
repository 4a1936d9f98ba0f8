// Package fortune 웹 페이지에서 오늘의 운세를 수집하여 안내하는 기능 핸들러입니다.
package fortune

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dumoklab/dumok-bot/internal/bot"
	apperrors "github.com/dumoklab/dumok-bot/internal/pkg/errors"
	"github.com/dumoklab/dumok-bot/pkg/strutil"
)

const moduleKey = "fortune"

const (
	actionMenu  = "menu"
	actionToday = "today"
)

const requestTimeout = 10 * time.Second

// signs 지원하는 별자리 목록입니다. 키는 콜백 파라미터, 값은 표시 이름입니다.
var signs = []struct {
	key   string
	label string
}{
	{"aries", "양자리"},
	{"taurus", "황소자리"},
	{"gemini", "쌍둥이자리"},
	{"cancer", "게자리"},
	{"leo", "사자자리"},
	{"virgo", "처녀자리"},
	{"libra", "천칭자리"},
	{"scorpio", "전갈자리"},
	{"sagittarius", "사수자리"},
	{"capricorn", "염소자리"},
	{"aquarius", "물병자리"},
	{"pisces", "물고기자리"},
}

// Handler 운세 기능 핸들러입니다.
type Handler struct {
	sender     *bot.Sender
	httpClient *http.Client
	sourceURL  string
}

// New 운세 핸들러를 생성합니다. sourceURL은 별자리 키가 경로로 덧붙는 기본 주소입니다.
func New(sender *bot.Sender, sourceURL string) *Handler {
	return &Handler{
		sender:     sender,
		httpClient: &http.Client{Timeout: requestTimeout},
		sourceURL:  strings.TrimRight(sourceURL, "/"),
	}
}

func (h *Handler) ModuleKey() string {
	return moduleKey
}

func (h *Handler) MenuItem() bot.MenuItem {
	return bot.MenuItem{
		Label:          "오늘의 운세",
		Icon:           "🔮",
		CallbackTarget: bot.CallbackData(moduleKey, actionMenu),
	}
}

// HandleMessage 운세 기능은 일반 텍스트 메시지를 수락하지 않습니다.
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
		return true, h.sender.SendMenu(ctx, chatID, "<b>🔮 오늘의 운세</b>\n\n별자리를 선택해 주세요.", h.menuKeyboard())

	case actionToday:
		if len(params) == 0 {
			return true, h.sender.SendMenu(ctx, chatID, "별자리가 지정되지 않았습니다.", h.menuKeyboard())
		}
		return true, h.sendFortune(ctx, chatID, params[0])

	default:
		return false, nil
	}
}

// sendFortune 운세 페이지를 수집하여 본문을 전송합니다.
func (h *Handler) sendFortune(ctx context.Context, chatID int64, signKey string) error {
	label, ok := signLabel(signKey)
	if !ok {
		return h.sender.SendMenu(ctx, chatID, "지원하지 않는 별자리입니다.", h.menuKeyboard())
	}

	text, err := h.scrape(ctx, signKey)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("<b>🔮 %s 오늘의 운세</b>\n\n%s", label, text)
	return h.sender.SendMenu(ctx, chatID, body, h.menuKeyboard())
}

// scrape 운세 페이지에서 본문 텍스트를 추출합니다.
func (h *Handler) scrape(ctx context.Context, signKey string) (string, error) {
	requestURL := h.sourceURL + "/" + url.PathEscape(signKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.Internal, "운세 페이지 요청 생성에 실패했습니다")
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.Unavailable, "운세 페이지 조회에 실패했습니다")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.Newf(apperrors.Unavailable, "운세 페이지가 비정상 응답을 반환했습니다 (status: %d)", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ParsingFailed, "운세 페이지 파싱에 실패했습니다")
	}

	// 본문 후보 영역을 순서대로 탐색합니다. 페이지 구조가 바뀌어도
	// 최소한 하나는 걸리도록 일반적인 선택자를 폭넓게 시도합니다.
	for _, selector := range []string{".fortune-text", "article p", ".content p", "p"} {
		text := strutil.NormalizeSpaces(doc.Find(selector).First().Text())
		if text != "" {
			return text, nil
		}
	}

	return "", apperrors.New(apperrors.ParsingFailed, "운세 페이지에서 본문을 찾을 수 없습니다")
}

func (h *Handler) menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	items := make([]bot.MenuItem, 0, len(signs))
	for _, s := range signs {
		items = append(items, bot.MenuItem{
			Label:          s.label,
			CallbackTarget: bot.CallbackData(moduleKey, actionToday, s.key),
		})
	}
	return bot.BuildKeyboard(items, 3, true)
}

func signLabel(key string) (string, bool) {
	for _, s := range signs {
		if s.key == key {
			return s.label, true
		}
	}
	return "", false
}
