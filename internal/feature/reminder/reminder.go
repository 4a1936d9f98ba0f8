// Package reminder 크론 표현식 기반의 반복 알림 기능 핸들러입니다.
//
// 알림 정의는 SQLite에 영속화되며, 시작 시 크론 엔진에 일괄 등록됩니다.
package reminder

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"

	"github.com/dumoklab/dumok-bot/internal/bot"
	apperrors "github.com/dumoklab/dumok-bot/internal/pkg/errors"
	applog "github.com/dumoklab/dumok-bot/pkg/log"
)

const component = "feature.reminder"

const moduleKey = "reminder"

const (
	actionMenu   = "menu"
	actionList   = "list"
	actionAdd    = "add"
	actionDelete = "delete"
)

// maxMessageLength 알림 메시지의 최대 길이입니다.
const maxMessageLength = 200

// addInputFormat 알림 추가 시 기대하는 입력 형식 안내입니다.
const addInputFormat = "<크론 표현식> | <알림 내용>\n예) 0 9 * * 1-5 | 아침 회의 시간입니다"

// Handler 반복 알림 기능 핸들러입니다.
type Handler struct {
	db     *sql.DB
	sender *bot.Sender
	cron   *cron.Cron
	parser cron.Parser

	mu      sync.Mutex
	waiting map[int64]bool         // 알림 정의 입력을 기다리는 사용자 집합
	jobs    map[int64]cron.EntryID // 알림 ID → 크론 엔트리 ID
}

// New 반복 알림 핸들러를 생성합니다.
func New(db *sql.DB, sender *bot.Sender) *Handler {
	return &Handler{
		db:     db,
		sender: sender,
		cron:   cron.New(),
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),

		waiting: make(map[int64]bool),
		jobs:    make(map[int64]cron.EntryID),
	}
}

func (h *Handler) ModuleKey() string {
	return moduleKey
}

func (h *Handler) MenuItem() bot.MenuItem {
	return bot.MenuItem{
		Label:          "반복 알림",
		Icon:           "🔔",
		CallbackTarget: bot.CallbackData(moduleKey, actionMenu),
	}
}

// Initialize 알림 테이블을 생성하고, 영속화된 알림들을 크론 엔진에 등록한 뒤
// 엔진을 시작합니다.
func (h *Handler) Initialize(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS reminders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		chat_id INTEGER NOT NULL,
		cron_spec TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := h.db.ExecContext(ctx, schema); err != nil {
		return apperrors.Wrap(err, apperrors.System, "알림 테이블 생성에 실패했습니다")
	}

	rows, err := h.db.QueryContext(ctx, "SELECT id, chat_id, cron_spec, message FROM reminders")
	if err != nil {
		return apperrors.Wrap(err, apperrors.System, "알림 목록 로드에 실패했습니다")
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var id, chatID int64
		var spec, message string
		if err := rows.Scan(&id, &chatID, &spec, &message); err != nil {
			return apperrors.Wrap(err, apperrors.System, "알림 목록 읽기에 실패했습니다")
		}

		if err := h.schedule(id, chatID, spec, message); err != nil {
			// 저장 당시에는 유효했던 표현식이므로 실패는 비정상 상황입니다.
			// 해당 알림만 건너뛰고 나머지는 계속 로드합니다.
			applog.WithComponentAndFields(component, applog.Fields{
				"reminder_id": id,
				"cron_spec":   spec,
				"error":       err,
			}).Warn("저장된 알림 등록 실패: 해당 알림을 건너뜁니다")
			continue
		}
		loaded++
	}
	if err := rows.Err(); err != nil {
		return apperrors.Wrap(err, apperrors.System, "알림 목록 읽기에 실패했습니다")
	}

	h.cron.Start()

	applog.WithComponentAndFields(component, applog.Fields{
		"loaded": loaded,
	}).Info("반복 알림 엔진 시작됨")

	return nil
}

// Cleanup 크론 엔진을 중지하고 실행 중인 작업이 끝나기를 기다립니다.
func (h *Handler) Cleanup() {
	stopCtx := h.cron.Stop()
	<-stopCtx.Done()

	applog.WithComponent(component).Debug("반복 알림 엔진 중지됨")
}

// schedule 알림 하나를 크론 엔진에 등록합니다.
func (h *Handler) schedule(id, chatID int64, spec, message string) error {
	sched, err := h.parser.Parse(spec)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ParsingFailed, "크론 표현식 파싱에 실패했습니다: '%s'", spec)
	}

	entryID := h.cron.Schedule(sched, cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := h.sender.SendText(ctx, chatID, "🔔 <b>알림</b>\n\n"+message); err != nil {
			applog.WithComponentAndFields(component, applog.Fields{
				"reminder_id": id,
				"chat_id":     chatID,
				"error":       err,
			}).Error("알림 전송 실패")
		}
	}))

	h.mu.Lock()
	h.jobs[id] = entryID
	h.mu.Unlock()

	return nil
}

// HandleMessage 입력 대기 상태인 사용자의 텍스트를 알림 정의로 수락합니다.
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

	spec, text, ok := parseDefinition(message.Text)
	if !ok {
		return true, h.sender.SendMenu(ctx, chatID,
			"입력 형식이 올바르지 않습니다.\n\n"+addInputFormat, h.menuKeyboard())
	}
	if _, err := h.parser.Parse(spec); err != nil {
		return true, h.sender.SendMenu(ctx, chatID,
			fmt.Sprintf("크론 표현식('%s')이 올바르지 않습니다.\n\n%s", spec, addInputFormat), h.menuKeyboard())
	}

	res, err := h.db.ExecContext(ctx,
		"INSERT INTO reminders (user_id, chat_id, cron_spec, message) VALUES (?, ?, ?, ?)",
		userID, chatID, spec, text)
	if err != nil {
		return true, apperrors.Wrap(err, apperrors.ExecutionFailed, "알림 저장에 실패했습니다")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return true, apperrors.Wrap(err, apperrors.ExecutionFailed, "알림 저장 결과 확인에 실패했습니다")
	}

	if err := h.schedule(id, chatID, spec, text); err != nil {
		return true, err
	}

	return true, h.sendList(ctx, chatID, userID, "알림이 등록되었습니다.")
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

		return true, h.sender.SendText(ctx, chatID,
			"등록할 알림을 아래 형식으로 입력해 주세요.\n\n"+addInputFormat)

	case actionDelete:
		return h.deleteReminder(ctx, chatID, userID, params)

	default:
		return false, nil
	}
}

func (h *Handler) deleteReminder(ctx context.Context, chatID, userID int64, params []string) (bool, error) {
	if len(params) == 0 {
		return true, h.sender.SendMenu(ctx, chatID, "삭제할 알림이 지정되지 않았습니다.", h.menuKeyboard())
	}
	id, err := strconv.ParseInt(params[0], 10, 64)
	if err != nil {
		return true, h.sender.SendMenu(ctx, chatID, "잘못된 알림 번호입니다.", h.menuKeyboard())
	}

	res, err := h.db.ExecContext(ctx,
		"DELETE FROM reminders WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return true, apperrors.Wrap(err, apperrors.ExecutionFailed, "알림 삭제에 실패했습니다")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return true, h.sender.SendMenu(ctx, chatID, "해당 알림을 찾을 수 없습니다.", h.menuKeyboard())
	}

	h.mu.Lock()
	if entryID, ok := h.jobs[id]; ok {
		h.cron.Remove(entryID)
		delete(h.jobs, id)
	}
	h.mu.Unlock()

	return true, h.sendList(ctx, chatID, userID, "알림이 삭제되었습니다.")
}

func (h *Handler) sendList(ctx context.Context, chatID, userID int64, notice string) error {
	rows, err := h.db.QueryContext(ctx,
		"SELECT id, cron_spec, message FROM reminders WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ExecutionFailed, "알림 목록 조회에 실패했습니다")
	}
	defer rows.Close()

	var sb strings.Builder
	if notice != "" {
		sb.WriteString(notice)
		sb.WriteString("\n\n")
	}
	sb.WriteString("<b>🔔 반복 알림 목록</b>\n\n")

	var buttons []bot.MenuItem
	index := 0
	for rows.Next() {
		var id int64
		var spec, message string
		if err := rows.Scan(&id, &spec, &message); err != nil {
			return apperrors.Wrap(err, apperrors.ExecutionFailed, "알림 목록 읽기에 실패했습니다")
		}
		index++
		sb.WriteString(fmt.Sprintf("%d. <code>%s</code> %s\n", index, spec, message))
		buttons = append(buttons, bot.MenuItem{
			Label:          fmt.Sprintf("%d번 삭제", index),
			Icon:           "🗑",
			CallbackTarget: bot.CallbackData(moduleKey, actionDelete, strconv.FormatInt(id, 10)),
		})
	}
	if err := rows.Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ExecutionFailed, "알림 목록 읽기에 실패했습니다")
	}
	if index == 0 {
		sb.WriteString("등록된 알림이 없습니다.")
	}

	buttons = append(buttons, bot.MenuItem{Label: "알림 추가", Icon: "➕", CallbackTarget: bot.CallbackData(moduleKey, actionAdd)})

	return h.sender.SendMenu(ctx, chatID, sb.String(), bot.BuildKeyboard(buttons, 0, true))
}

func (h *Handler) menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return bot.BuildKeyboard([]bot.MenuItem{
		{Label: "알림 목록", Icon: "🔔", CallbackTarget: bot.CallbackData(moduleKey, actionList)},
	}, 0, true)
}

// parseDefinition "크론 표현식 | 메시지" 형식의 입력을 분해합니다.
func parseDefinition(input string) (spec, message string, ok bool) {
	parts := strings.SplitN(input, "|", 2)
	if len(parts) != 2 {
		return "", "", false
	}

	spec = strings.TrimSpace(parts[0])
	message = strings.TrimSpace(parts[1])
	if spec == "" || message == "" || len([]rune(message)) > maxMessageLength {
		return "", "", false
	}
	return spec, message, true
}
