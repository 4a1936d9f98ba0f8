// Package timer 메모리 기반 카운트다운 타이머 기능 핸들러입니다.
//
// 타이머는 영속화되지 않으며, 프로세스가 재시작되면 모두 사라집니다.
package timer

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dumoklab/dumok-bot/internal/bot"
	applog "github.com/dumoklab/dumok-bot/pkg/log"
)

const component = "feature.timer"

const moduleKey = "timer"

const (
	actionMenu   = "menu"
	actionSet    = "set"
	actionCancel = "cancel"
	actionList   = "list"
)

const (
	minMinutes = 1
	maxMinutes = 24 * 60
)

// entry 실행 중인 타이머 하나의 상태입니다.
type entry struct {
	id       int64
	chatID   int64
	minutes  int
	expireAt time.Time
	timer    *time.Timer
}

// Handler 타이머 기능 핸들러입니다.
type Handler struct {
	sender *bot.Sender

	mu     sync.Mutex
	nextID int64
	timers map[int64]map[int64]*entry // userID → timerID → entry
}

// New 타이머 핸들러를 생성합니다.
func New(sender *bot.Sender) *Handler {
	return &Handler{
		sender: sender,
		nextID: 1,
		timers: make(map[int64]map[int64]*entry),
	}
}

func (h *Handler) ModuleKey() string {
	return moduleKey
}

func (h *Handler) MenuItem() bot.MenuItem {
	return bot.MenuItem{
		Label:          "타이머",
		Icon:           "⏱",
		CallbackTarget: bot.CallbackData(moduleKey, actionMenu),
	}
}

// Cleanup 실행 중인 모든 타이머를 중지합니다.
func (h *Handler) Cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, userTimers := range h.timers {
		for _, e := range userTimers {
			e.timer.Stop()
		}
	}
	h.timers = make(map[int64]map[int64]*entry)
}

// HandleMessage 타이머 기능은 일반 텍스트 메시지를 수락하지 않습니다.
func (h *Handler) HandleMessage(_ context.Context, _ *tgbotapi.Message) (bool, error) {
	return false, nil
}

func (h *Handler) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, action string, params []string) (bool, error) {
	if callback.Message == nil {
		return false, nil
	}
	chatID := callback.Message.Chat.ID
	userID := callback.From.ID

	switch action {
	case actionMenu, actionList:
		return true, h.sendList(ctx, chatID, userID, "")

	case actionSet:
		return h.set(ctx, chatID, userID, params)

	case actionCancel:
		return h.cancel(ctx, chatID, userID, params)

	default:
		return false, nil
	}
}

func (h *Handler) set(ctx context.Context, chatID, userID int64, params []string) (bool, error) {
	if len(params) == 0 {
		return true, h.sender.SendMenu(ctx, chatID, "타이머 시간이 지정되지 않았습니다.", h.menuKeyboard())
	}
	minutes, err := strconv.Atoi(params[0])
	if err != nil || minutes < minMinutes || minutes > maxMinutes {
		return true, h.sender.SendMenu(ctx, chatID,
			fmt.Sprintf("타이머 시간은 %d~%d분 사이로 지정해 주세요.", minMinutes, maxMinutes), h.menuKeyboard())
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++

	e := &entry{
		id:       id,
		chatID:   chatID,
		minutes:  minutes,
		expireAt: time.Now().Add(time.Duration(minutes) * time.Minute),
	}
	e.timer = time.AfterFunc(time.Duration(minutes)*time.Minute, func() {
		h.fire(userID, e)
	})

	if h.timers[userID] == nil {
		h.timers[userID] = make(map[int64]*entry)
	}
	h.timers[userID][id] = e
	h.mu.Unlock()

	return true, h.sendList(ctx, chatID, userID,
		fmt.Sprintf("%d분 타이머가 설정되었습니다.", minutes))
}

func (h *Handler) cancel(ctx context.Context, chatID, userID int64, params []string) (bool, error) {
	if len(params) == 0 {
		return true, h.sender.SendMenu(ctx, chatID, "취소할 타이머가 지정되지 않았습니다.", h.menuKeyboard())
	}
	id, err := strconv.ParseInt(params[0], 10, 64)
	if err != nil {
		return true, h.sender.SendMenu(ctx, chatID, "잘못된 타이머 번호입니다.", h.menuKeyboard())
	}

	h.mu.Lock()
	e, ok := h.timers[userID][id]
	if ok {
		e.timer.Stop()
		delete(h.timers[userID], id)
	}
	h.mu.Unlock()

	if !ok {
		return true, h.sender.SendMenu(ctx, chatID, "해당 타이머를 찾을 수 없습니다. 이미 만료되었을 수 있습니다.", h.menuKeyboard())
	}
	return true, h.sendList(ctx, chatID, userID, "타이머가 취소되었습니다.")
}

// fire 타이머 만료 시 알림을 전송하고 목록에서 제거합니다.
func (h *Handler) fire(userID int64, e *entry) {
	h.mu.Lock()
	delete(h.timers[userID], e.id)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.sender.SendText(ctx, e.chatID,
		fmt.Sprintf("⏱ <b>타이머 알림</b>\n\n설정하신 %d분이 경과하였습니다.", e.minutes)); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"chat_id": e.chatID,
			"error":   err,
		}).Error("타이머 알림 전송 실패")
	}
}

func (h *Handler) sendList(ctx context.Context, chatID, userID int64, notice string) error {
	h.mu.Lock()
	var entries []*entry
	for _, e := range h.timers[userID] {
		entries = append(entries, e)
	}
	h.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	var sb strings.Builder
	if notice != "" {
		sb.WriteString(notice)
		sb.WriteString("\n\n")
	}
	sb.WriteString("<b>⏱ 타이머 목록</b>\n\n")

	var buttons []bot.MenuItem
	if len(entries) == 0 {
		sb.WriteString("실행 중인 타이머가 없습니다.")
	} else {
		for _, e := range entries {
			remain := time.Until(e.expireAt).Round(time.Second)
			if remain < 0 {
				remain = 0
			}
			sb.WriteString(fmt.Sprintf("· %d분 타이머 (남은 시간 %s)\n", e.minutes, remain))
			buttons = append(buttons, bot.MenuItem{
				Label:          fmt.Sprintf("%d분 타이머 취소", e.minutes),
				Icon:           "❌",
				CallbackTarget: bot.CallbackData(moduleKey, actionCancel, strconv.FormatInt(e.id, 10)),
			})
		}
	}

	buttons = append(buttons,
		bot.MenuItem{Label: "5분", Icon: "⏱", CallbackTarget: bot.CallbackData(moduleKey, actionSet, "5")},
		bot.MenuItem{Label: "10분", Icon: "⏱", CallbackTarget: bot.CallbackData(moduleKey, actionSet, "10")},
		bot.MenuItem{Label: "30분", Icon: "⏱", CallbackTarget: bot.CallbackData(moduleKey, actionSet, "30")},
		bot.MenuItem{Label: "60분", Icon: "⏱", CallbackTarget: bot.CallbackData(moduleKey, actionSet, "60")},
	)

	return h.sender.SendMenu(ctx, chatID, sb.String(), bot.BuildKeyboard(buttons, 0, true))
}

func (h *Handler) menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return bot.BuildKeyboard([]bot.MenuItem{
		{Label: "타이머 목록", Icon: "⏱", CallbackTarget: bot.CallbackData(moduleKey, actionList)},
	}, 0, true)
}
