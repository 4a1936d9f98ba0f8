// Package todo 사용자별 할일 목록을 관리하는 기능 핸들러입니다.
package todo

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dumoklab/dumok-bot/internal/bot"
	apperrors "github.com/dumoklab/dumok-bot/internal/pkg/errors"
	applog "github.com/dumoklab/dumok-bot/pkg/log"
)

const component = "feature.todo"

const moduleKey = "todo"

const (
	actionMenu   = "menu"
	actionList   = "list"
	actionAdd    = "add"
	actionDone   = "done"
	actionDelete = "delete"
)

// maxItemLength 할일 내용의 최대 길이입니다.
const maxItemLength = 200

// Handler 할일 기능 핸들러입니다.
//
// 할일 추가는 2단계 흐름으로 동작합니다. "추가" 버튼을 누르면 해당 사용자를
// 입력 대기 상태로 전환하고, 다음 일반 텍스트 메시지를 할일 내용으로 수락합니다.
type Handler struct {
	db     *sql.DB
	sender *bot.Sender

	mu      sync.Mutex
	waiting map[int64]bool // 할일 내용 입력을 기다리는 사용자 집합
}

// New 할일 핸들러를 생성합니다.
func New(db *sql.DB, sender *bot.Sender) *Handler {
	return &Handler{
		db:      db,
		sender:  sender,
		waiting: make(map[int64]bool),
	}
}

func (h *Handler) ModuleKey() string {
	return moduleKey
}

func (h *Handler) MenuItem() bot.MenuItem {
	return bot.MenuItem{
		Label:          "할일 관리",
		Icon:           "📝",
		CallbackTarget: bot.CallbackData(moduleKey, actionMenu),
	}
}

// Initialize 할일 테이블을 생성합니다.
func (h *Handler) Initialize(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS todos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		done INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_todos_user ON todos(user_id, done);`

	if _, err := h.db.ExecContext(ctx, schema); err != nil {
		return apperrors.Wrap(err, apperrors.System, "할일 테이블 생성에 실패했습니다")
	}
	return nil
}

// HandleMessage 입력 대기 상태인 사용자의 텍스트를 할일 내용으로 수락합니다.
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

	content := strings.TrimSpace(message.Text)
	if content == "" || len([]rune(content)) > maxItemLength {
		return true, h.sender.SendMenu(ctx, message.Chat.ID,
			fmt.Sprintf("할일 내용은 1~%d자로 입력해 주세요. 추가 버튼을 눌러 다시 시도해 주세요.", maxItemLength),
			h.menuKeyboard())
	}

	if _, err := h.db.ExecContext(ctx,
		"INSERT INTO todos (user_id, content) VALUES (?, ?)", userID, content); err != nil {
		return true, apperrors.Wrap(err, apperrors.ExecutionFailed, "할일 저장에 실패했습니다")
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"user_id": userID,
	}).Debug("할일 추가됨")

	return true, h.sendList(ctx, message.Chat.ID, userID, "할일이 추가되었습니다.")
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

	case actionAdd:
		h.mu.Lock()
		h.waiting[userID] = true
		h.mu.Unlock()

		return true, h.sender.SendText(ctx, chatID, "추가할 할일 내용을 입력해 주세요.")

	case actionDone:
		return h.markDone(ctx, chatID, userID, params)

	case actionDelete:
		return h.deleteItem(ctx, chatID, userID, params)

	default:
		return false, nil
	}
}

func (h *Handler) markDone(ctx context.Context, chatID, userID int64, params []string) (bool, error) {
	id, ok := parseID(params)
	if !ok {
		return true, h.sender.SendMenu(ctx, chatID, "잘못된 할일 번호입니다.", h.menuKeyboard())
	}

	res, err := h.db.ExecContext(ctx,
		"UPDATE todos SET done = 1 WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return true, apperrors.Wrap(err, apperrors.ExecutionFailed, "할일 완료 처리에 실패했습니다")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return true, h.sender.SendMenu(ctx, chatID, "해당 할일을 찾을 수 없습니다. 이미 삭제되었을 수 있습니다.", h.menuKeyboard())
	}

	return true, h.sendList(ctx, chatID, userID, "할일을 완료 처리했습니다.")
}

func (h *Handler) deleteItem(ctx context.Context, chatID, userID int64, params []string) (bool, error) {
	id, ok := parseID(params)
	if !ok {
		return true, h.sender.SendMenu(ctx, chatID, "잘못된 할일 번호입니다.", h.menuKeyboard())
	}

	res, err := h.db.ExecContext(ctx,
		"DELETE FROM todos WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return true, apperrors.Wrap(err, apperrors.ExecutionFailed, "할일 삭제에 실패했습니다")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return true, h.sender.SendMenu(ctx, chatID, "해당 할일을 찾을 수 없습니다. 이미 삭제되었을 수 있습니다.", h.menuKeyboard())
	}

	return true, h.sendList(ctx, chatID, userID, "할일이 삭제되었습니다.")
}

// sendList 미완료 할일 목록과 항목별 조작 버튼을 전송합니다.
func (h *Handler) sendList(ctx context.Context, chatID, userID int64, notice string) error {
	rows, err := h.db.QueryContext(ctx,
		"SELECT id, content FROM todos WHERE user_id = ? AND done = 0 ORDER BY id", userID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ExecutionFailed, "할일 목록 조회에 실패했습니다")
	}
	defer rows.Close()

	type item struct {
		id      int64
		content string
	}
	var items []item
	for rows.Next() {
		var it item
		if err := rows.Scan(&it.id, &it.content); err != nil {
			return apperrors.Wrap(err, apperrors.ExecutionFailed, "할일 목록 읽기에 실패했습니다")
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ExecutionFailed, "할일 목록 읽기에 실패했습니다")
	}

	var sb strings.Builder
	if notice != "" {
		sb.WriteString(notice)
		sb.WriteString("\n\n")
	}
	sb.WriteString("<b>📝 할일 목록</b>\n\n")

	var buttons []bot.MenuItem
	if len(items) == 0 {
		sb.WriteString("등록된 할일이 없습니다.")
	} else {
		for i, it := range items {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, it.content))
			idStr := strconv.FormatInt(it.id, 10)
			buttons = append(buttons,
				bot.MenuItem{Label: fmt.Sprintf("%d번 완료", i+1), Icon: "✅", CallbackTarget: bot.CallbackData(moduleKey, actionDone, idStr)},
				bot.MenuItem{Label: fmt.Sprintf("%d번 삭제", i+1), Icon: "🗑", CallbackTarget: bot.CallbackData(moduleKey, actionDelete, idStr)},
			)
		}
	}
	buttons = append(buttons, bot.MenuItem{Label: "할일 추가", Icon: "➕", CallbackTarget: bot.CallbackData(moduleKey, actionAdd)})

	return h.sender.SendMenu(ctx, chatID, sb.String(), bot.BuildKeyboard(buttons, 0, true))
}

func (h *Handler) menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return bot.BuildKeyboard([]bot.MenuItem{
		{Label: "할일 목록", Icon: "📝", CallbackTarget: bot.CallbackData(moduleKey, actionList)},
	}, 0, true)
}

// parseID 파라미터의 첫 세그먼트를 할일 ID로 파싱합니다.
func parseID(params []string) (int64, bool) {
	if len(params) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(params[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
