// Package worktime 출퇴근 기록을 관리하는 기능 핸들러입니다.
package worktime

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dumoklab/dumok-bot/internal/bot"
	apperrors "github.com/dumoklab/dumok-bot/internal/pkg/errors"
)

const moduleKey = "worktime"

const (
	actionMenu  = "menu"
	actionIn    = "in"
	actionOut   = "out"
	actionToday = "today"
	actionWeek  = "week"
)

const (
	recordTypeIn  = "in"
	recordTypeOut = "out"
)

// Handler 출퇴근 기능 핸들러입니다.
type Handler struct {
	db     *sql.DB
	sender *bot.Sender

	// now 테스트에서 시간 흐름을 제어하기 위한 주입 지점입니다.
	now func() time.Time
}

// New 출퇴근 핸들러를 생성합니다.
func New(db *sql.DB, sender *bot.Sender) *Handler {
	return &Handler{db: db, sender: sender, now: time.Now}
}

func (h *Handler) ModuleKey() string {
	return moduleKey
}

func (h *Handler) MenuItem() bot.MenuItem {
	return bot.MenuItem{
		Label:          "출퇴근 기록",
		Icon:           "⏰",
		CallbackTarget: bot.CallbackData(moduleKey, actionMenu),
	}
}

// Initialize 출퇴근 테이블을 생성합니다.
func (h *Handler) Initialize(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS worktime_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		record_type TEXT NOT NULL,
		recorded_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_worktime_user ON worktime_records(user_id, recorded_at);`

	if _, err := h.db.ExecContext(ctx, schema); err != nil {
		return apperrors.Wrap(err, apperrors.System, "출퇴근 테이블 생성에 실패했습니다")
	}
	return nil
}

// HandleMessage 출퇴근 기능은 일반 텍스트 메시지를 수락하지 않습니다.
func (h *Handler) HandleMessage(_ context.Context, _ *tgbotapi.Message) (bool, error) {
	return false, nil
}

func (h *Handler) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, action string, _ []string) (bool, error) {
	if callback.Message == nil {
		return false, nil
	}
	chatID := callback.Message.Chat.ID
	userID := callback.From.ID

	switch action {
	case actionMenu:
		return true, h.sender.SendMenu(ctx, chatID, "<b>⏰ 출퇴근 기록</b>\n\n원하시는 작업을 선택해 주세요.", h.menuKeyboard())

	case actionIn:
		return true, h.record(ctx, chatID, userID, recordTypeIn)

	case actionOut:
		return true, h.record(ctx, chatID, userID, recordTypeOut)

	case actionToday:
		return true, h.sendSummary(ctx, chatID, userID, 1)

	case actionWeek:
		return true, h.sendSummary(ctx, chatID, userID, 7)

	default:
		return false, nil
	}
}

// record 출근 또는 퇴근을 기록합니다. 같은 종류의 기록이 직전에 있어도
// 막지 않고 그대로 기록하며, 정산 시 마지막 기록을 기준으로 계산합니다.
func (h *Handler) record(ctx context.Context, chatID, userID int64, recordType string) error {
	now := h.now()
	if _, err := h.db.ExecContext(ctx,
		"INSERT INTO worktime_records (user_id, record_type, recorded_at) VALUES (?, ?, ?)",
		userID, recordType, now); err != nil {
		return apperrors.Wrap(err, apperrors.ExecutionFailed, "출퇴근 기록 저장에 실패했습니다")
	}

	label := "출근"
	if recordType == recordTypeOut {
		label = "퇴근"
	}
	return h.sender.SendMenu(ctx, chatID,
		fmt.Sprintf("%s 시각이 기록되었습니다. (%s)", label, now.Format("15:04")), h.menuKeyboard())
}

// sendSummary 최근 days일 간의 출퇴근 기록을 전송합니다.
func (h *Handler) sendSummary(ctx context.Context, chatID, userID int64, days int) error {
	since := h.now().AddDate(0, 0, -days+1)
	since = time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, since.Location())

	rows, err := h.db.QueryContext(ctx, `
		SELECT record_type, recorded_at FROM worktime_records
		WHERE user_id = ? AND recorded_at >= ? ORDER BY recorded_at`, userID, since)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ExecutionFailed, "출퇴근 기록 조회에 실패했습니다")
	}
	defer rows.Close()

	title := "오늘의 기록"
	if days > 1 {
		title = fmt.Sprintf("최근 %d일 기록", days)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>⏰ %s</b>\n\n", title))

	count := 0
	for rows.Next() {
		var recordType string
		var recordedAt time.Time
		if err := rows.Scan(&recordType, &recordedAt); err != nil {
			return apperrors.Wrap(err, apperrors.ExecutionFailed, "출퇴근 기록 읽기에 실패했습니다")
		}
		label := "출근"
		if recordType == recordTypeOut {
			label = "퇴근"
		}
		sb.WriteString(fmt.Sprintf("· %s %s\n", recordedAt.Format("01/02 15:04"), label))
		count++
	}
	if err := rows.Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ExecutionFailed, "출퇴근 기록 읽기에 실패했습니다")
	}
	if count == 0 {
		sb.WriteString("기록이 없습니다.")
	}

	return h.sender.SendMenu(ctx, chatID, sb.String(), h.menuKeyboard())
}

func (h *Handler) menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return bot.BuildKeyboard([]bot.MenuItem{
		{Label: "출근", Icon: "🌅", CallbackTarget: bot.CallbackData(moduleKey, actionIn)},
		{Label: "퇴근", Icon: "🌇", CallbackTarget: bot.CallbackData(moduleKey, actionOut)},
		{Label: "오늘 기록", Icon: "📅", CallbackTarget: bot.CallbackData(moduleKey, actionToday)},
		{Label: "주간 기록", Icon: "🗓", CallbackTarget: bot.CallbackData(moduleKey, actionWeek)},
	}, 0, true)
}
