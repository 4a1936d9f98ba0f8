// Package leave 사용자별 연차 잔여일을 관리하는 기능 핸들러입니다.
//
// 연차는 0.5일 단위 사용이 흔하므로 내부적으로는 0.1일 단위의 정수(tenths)로
// 저장하여 부동소수점 누적 오차를 피합니다.
package leave

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dumoklab/dumok-bot/internal/bot"
	apperrors "github.com/dumoklab/dumok-bot/internal/pkg/errors"
)

const moduleKey = "leave"

const (
	actionMenu    = "menu"
	actionStatus  = "status"
	actionUse     = "use"
	actionGrant   = "grant"
	actionHistory = "history"
)

// historyLimit 이력 조회 시 표시하는 최대 건수입니다.
const historyLimit = 10

// Handler 연차 기능 핸들러입니다.
type Handler struct {
	db     *sql.DB
	sender *bot.Sender
}

// New 연차 핸들러를 생성합니다.
func New(db *sql.DB, sender *bot.Sender) *Handler {
	return &Handler{db: db, sender: sender}
}

func (h *Handler) ModuleKey() string {
	return moduleKey
}

func (h *Handler) MenuItem() bot.MenuItem {
	return bot.MenuItem{
		Label:          "연차 관리",
		Icon:           "🏖",
		CallbackTarget: bot.CallbackData(moduleKey, actionMenu),
	}
}

// Initialize 연차 테이블을 생성합니다.
func (h *Handler) Initialize(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS leave_balances (
		user_id INTEGER PRIMARY KEY,
		balance_tenths INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS leave_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		delta_tenths INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := h.db.ExecContext(ctx, schema); err != nil {
		return apperrors.Wrap(err, apperrors.System, "연차 테이블 생성에 실패했습니다")
	}
	return nil
}

// HandleMessage 연차 기능은 일반 텍스트 메시지를 수락하지 않습니다.
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
	case actionMenu, actionStatus:
		return true, h.sendStatus(ctx, chatID, userID, "")

	case actionUse:
		return h.adjust(ctx, chatID, userID, params, -1)

	case actionGrant:
		return h.adjust(ctx, chatID, userID, params, +1)

	case actionHistory:
		return true, h.sendHistory(ctx, chatID, userID)

	default:
		return false, nil
	}
}

// adjust 연차를 사용(-1) 또는 부여(+1)합니다. params[0]은 0.1일 단위의 양수입니다.
func (h *Handler) adjust(ctx context.Context, chatID, userID int64, params []string, sign int64) (bool, error) {
	if len(params) == 0 {
		return true, h.sender.SendMenu(ctx, chatID, "연차 일수가 지정되지 않았습니다.", h.menuKeyboard())
	}
	tenths, err := strconv.ParseInt(params[0], 10, 64)
	if err != nil || tenths <= 0 {
		return true, h.sender.SendMenu(ctx, chatID, "잘못된 연차 일수입니다.", h.menuKeyboard())
	}
	delta := sign * tenths

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return true, apperrors.Wrap(err, apperrors.ExecutionFailed, "연차 변경 트랜잭션 시작에 실패했습니다")
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowContext(ctx,
		"SELECT balance_tenths FROM leave_balances WHERE user_id = ?", userID).Scan(&balance)
	if err != nil && err != sql.ErrNoRows {
		return true, apperrors.Wrap(err, apperrors.ExecutionFailed, "연차 잔여일 조회에 실패했습니다")
	}

	if balance+delta < 0 {
		return true, h.sender.SendMenu(ctx, chatID,
			fmt.Sprintf("연차 잔여일이 부족합니다. (잔여 %s일)", formatDays(balance)), h.menuKeyboard())
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO leave_balances (user_id, balance_tenths) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET balance_tenths = balance_tenths + excluded.balance_tenths`,
		userID, delta); err != nil {
		return true, apperrors.Wrap(err, apperrors.ExecutionFailed, "연차 잔여일 갱신에 실패했습니다")
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO leave_history (user_id, delta_tenths) VALUES (?, ?)", userID, delta); err != nil {
		return true, apperrors.Wrap(err, apperrors.ExecutionFailed, "연차 이력 기록에 실패했습니다")
	}
	if err := tx.Commit(); err != nil {
		return true, apperrors.Wrap(err, apperrors.ExecutionFailed, "연차 변경 저장에 실패했습니다")
	}

	verb := "사용"
	if sign > 0 {
		verb = "부여"
	}
	return true, h.sendStatus(ctx, chatID, userID,
		fmt.Sprintf("연차 %s일이 %s되었습니다.", formatDays(tenths), verb))
}

func (h *Handler) sendStatus(ctx context.Context, chatID, userID int64, notice string) error {
	var balance int64
	err := h.db.QueryRowContext(ctx,
		"SELECT balance_tenths FROM leave_balances WHERE user_id = ?", userID).Scan(&balance)
	if err != nil && err != sql.ErrNoRows {
		return apperrors.Wrap(err, apperrors.ExecutionFailed, "연차 잔여일 조회에 실패했습니다")
	}

	var sb strings.Builder
	if notice != "" {
		sb.WriteString(notice)
		sb.WriteString("\n\n")
	}
	sb.WriteString(fmt.Sprintf("<b>🏖 연차 현황</b>\n\n잔여 연차: %s일", formatDays(balance)))

	return h.sender.SendMenu(ctx, chatID, sb.String(), h.menuKeyboard())
}

func (h *Handler) sendHistory(ctx context.Context, chatID, userID int64) error {
	rows, err := h.db.QueryContext(ctx, `
		SELECT delta_tenths, created_at FROM leave_history
		WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, historyLimit)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ExecutionFailed, "연차 이력 조회에 실패했습니다")
	}
	defer rows.Close()

	var sb strings.Builder
	sb.WriteString("<b>🏖 연차 사용 이력</b>\n\n")

	count := 0
	for rows.Next() {
		var delta int64
		var createdAt string
		if err := rows.Scan(&delta, &createdAt); err != nil {
			return apperrors.Wrap(err, apperrors.ExecutionFailed, "연차 이력 읽기에 실패했습니다")
		}
		verb := "사용"
		if delta > 0 {
			verb = "부여"
		} else {
			delta = -delta
		}
		sb.WriteString(fmt.Sprintf("· %s %s일 %s\n", createdAt, formatDays(delta), verb))
		count++
	}
	if err := rows.Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ExecutionFailed, "연차 이력 읽기에 실패했습니다")
	}
	if count == 0 {
		sb.WriteString("이력이 없습니다.")
	}

	return h.sender.SendMenu(ctx, chatID, sb.String(), h.menuKeyboard())
}

func (h *Handler) menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return bot.BuildKeyboard([]bot.MenuItem{
		{Label: "반차 사용", Icon: "🌗", CallbackTarget: bot.CallbackData(moduleKey, actionUse, "5")},
		{Label: "연차 사용", Icon: "🌕", CallbackTarget: bot.CallbackData(moduleKey, actionUse, "10")},
		{Label: "연차 1일 부여", Icon: "➕", CallbackTarget: bot.CallbackData(moduleKey, actionGrant, "10")},
		{Label: "사용 이력", Icon: "📜", CallbackTarget: bot.CallbackData(moduleKey, actionHistory)},
	}, 0, true)
}

// formatDays 0.1일 단위 정수를 "1.5" 형태의 일수 문자열로 변환합니다.
func formatDays(tenths int64) string {
	if tenths%10 == 0 {
		return strconv.FormatInt(tenths/10, 10)
	}
	return fmt.Sprintf("%d.%d", tenths/10, tenths%10)
}
