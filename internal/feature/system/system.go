// Package system 메인 메뉴, 도움말, 서버 상태 조회를 담당하는 시스템 핸들러입니다.
//
// 다른 기능 핸들러들과 동일한 계약을 따르지만, 모듈 키 "system"은 라우터에서
// "main" 별칭의 재작성 대상으로 예약되어 있습니다.
package system

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dumoklab/dumok-bot/internal/bot"
	"github.com/dumoklab/dumok-bot/internal/pkg/version"
	applog "github.com/dumoklab/dumok-bot/pkg/log"
)

const component = "feature.system"

const (
	actionMenu   = "menu"
	actionHelp   = "help"
	actionStatus = "status"
)

// Handler 시스템 기능 핸들러입니다.
type Handler struct {
	sender    *bot.Sender
	menuItems func() []bot.MenuItem
	startedAt time.Time
}

// New 시스템 핸들러를 생성합니다.
//
// menuItems는 메인 메뉴에 표시할 항목 목록을 반환하는 함수입니다. 레지스트리
// 구성이 끝난 뒤에야 최종 목록이 확정되므로 값이 아닌 함수로 주입받습니다.
func New(sender *bot.Sender, menuItems func() []bot.MenuItem) *Handler {
	return &Handler{
		sender:    sender,
		menuItems: menuItems,
		startedAt: time.Now(),
	}
}

func (h *Handler) ModuleKey() string {
	return bot.ModuleKeySystem
}

func (h *Handler) MenuItem() bot.MenuItem {
	return bot.MenuItem{
		Label:          "메인 메뉴",
		Icon:           "🏠",
		CallbackTarget: bot.CallbackData(bot.ModuleKeySystem, actionMenu),
	}
}

// HandleMessage 시스템 핸들러는 일반 텍스트 메시지를 수락하지 않습니다.
func (h *Handler) HandleMessage(_ context.Context, _ *tgbotapi.Message) (bool, error) {
	return false, nil
}

func (h *Handler) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, action string, _ []string) (bool, error) {
	if callback.Message == nil {
		return false, nil
	}
	chatID := callback.Message.Chat.ID

	switch action {
	case actionMenu:
		return true, h.showMainMenu(ctx, chatID, callback.Message.MessageID)

	case actionHelp:
		return true, h.sender.SendText(ctx, chatID, helpText())

	case actionStatus:
		return true, h.sender.SendMenu(ctx, chatID, h.statusText(), bot.MenuOnlyKeyboard())

	default:
		applog.WithComponentAndFields(component, applog.Fields{
			"action": action,
		}).Warn("알 수 없는 시스템 액션")
		return false, nil
	}
}

// showMainMenu 메인 메뉴를 기존 메시지 위에 덮어씁니다.
// 메뉴 화면 전환이 새 메시지를 계속 쌓지 않도록 수정 전송을 우선 시도하고,
// 수정이 불가능한 메시지(사용자가 직접 보낸 명령어 등)에는 새로 전송합니다.
func (h *Handler) showMainMenu(ctx context.Context, chatID int64, messageID int) error {
	items := h.menuItems()
	items = append(items,
		bot.MenuItem{Label: "도움말", Icon: "❓", CallbackTarget: bot.CallbackData(bot.ModuleKeySystem, actionHelp)},
		bot.MenuItem{Label: "서버 상태", Icon: "📊", CallbackTarget: bot.CallbackData(bot.ModuleKeySystem, actionStatus)},
	)
	keyboard := bot.BuildKeyboard(items, 0, false)
	text := "<b>두목봇 메인 메뉴</b>\n\n원하시는 기능을 선택해 주세요."

	if err := h.sender.EditMenu(ctx, chatID, messageID, text, keyboard); err != nil {
		return h.sender.SendMenu(ctx, chatID, text, keyboard)
	}
	return nil
}

// statusText 빌드 정보와 가동 시간을 포함한 상태 문자열을 생성합니다.
func (h *Handler) statusText() string {
	info := version.Get()
	uptime := time.Since(h.startedAt).Round(time.Second)

	return fmt.Sprintf(
		"<b>서버 상태</b>\n\n"+
			"버전: %s\n"+
			"커밋: %s\n"+
			"빌드 일시: %s\n"+
			"Go 버전: %s\n"+
			"가동 시간: %s",
		info.Version, info.Commit, info.BuildDate, info.GoVersion, uptime,
	)
}

func helpText() string {
	return "<b>두목봇 사용 안내</b>\n\n" +
		"메인 메뉴의 버튼으로 각 기능을 사용할 수 있습니다.\n\n" +
		"/menu - 메인 메뉴 열기\n" +
		"/help - 사용 안내 보기"
}
