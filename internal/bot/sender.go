package bot

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	apperrors "github.com/dumoklab/dumok-bot/internal/pkg/errors"
	applog "github.com/dumoklab/dumok-bot/pkg/log"
	"github.com/dumoklab/dumok-bot/pkg/strutil"
)

const (
	// messageMaxLength 텔레그램 메시지 전송 시 허용되는 최대 문자 길이입니다.
	//
	// 텔레그램 Bot API 공식 제한은 4096자이지만, HTML 태그 및 메타데이터 오버헤드를
	// 고려하여 안전 마진을 두고 3900자로 설정했습니다. 이를 초과하는 메시지는
	// 자동으로 분할 전송됩니다.
	messageMaxLength = 3900

	// sendTimeout 단일 메시지 전송에 허용되는 최대 시간입니다.
	sendTimeout = 10 * time.Second
)

// Sender 텔레그램 메시지 발송을 담당하는 발신 전용 컴포넌트입니다.
//
// 텔레그램 API 정책(채팅방당 초당 1회)을 준수하기 위해 채팅방별 Rate Limiter를
// 적용하며, 최대 길이를 초과하는 메시지는 룬 단위로 안전하게 분할하여 전송합니다.
type Sender struct {
	client Client

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
}

// NewSender 새로운 Sender 인스턴스를 생성합니다.
func NewSender(client Client) *Sender {
	return &Sender{
		client:   client,
		limiters: make(map[int64]*rate.Limiter),
	}
}

// limiter 채팅방별 Rate Limiter를 반환합니다. 없으면 새로 생성합니다.
func (s *Sender) limiter(chatID int64) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.limiters[chatID]
	if !ok {
		// 텔레그램 정책: 동일 채팅방에는 초당 1건 전송을 권장
		l = rate.NewLimiter(rate.Limit(1), 1)
		s.limiters[chatID] = l
	}
	return l
}

// SendText 지정된 채팅방에 HTML 모드 텍스트 메시지를 전송합니다.
// 최대 길이를 초과하는 메시지는 여러 건으로 분할됩니다.
func (s *Sender) SendText(ctx context.Context, chatID int64, text string) error {
	return s.sendChunks(ctx, chatID, text, nil)
}

// SendMenu 텍스트와 인라인 키보드를 함께 전송합니다.
// 키보드는 마지막 조각에만 첨부됩니다.
func (s *Sender) SendMenu(ctx context.Context, chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	return s.sendChunks(ctx, chatID, text, &keyboard)
}

// EditMenu 기존 메시지의 텍스트와 인라인 키보드를 교체합니다.
// 메뉴 화면 전환 시 새 메시지를 쌓지 않고 기존 메시지를 재활용하기 위해 사용합니다.
func (s *Sender) EditMenu(ctx context.Context, chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	if err := s.limiter(chatID).Wait(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.Timeout, "메시지 수정 대기 중 컨텍스트가 취소되었습니다")
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := s.client.Send(edit); err != nil {
		return apperrors.Wrap(err, apperrors.ExecutionFailed, "텔레그램 메시지 수정에 실패했습니다")
	}
	return nil
}

// SendVoice OGG 음성 데이터를 보이스 메시지로 전송합니다.
func (s *Sender) SendVoice(ctx context.Context, chatID int64, name string, data []byte) error {
	if err := s.limiter(chatID).Wait(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.Timeout, "음성 전송 대기 중 컨텍스트가 취소되었습니다")
	}

	voice := tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	if _, err := s.client.Send(voice); err != nil {
		return apperrors.Wrap(err, apperrors.ExecutionFailed, "텔레그램 음성 메시지 전송에 실패했습니다")
	}
	return nil
}

// AnswerCallback 콜백 쿼리에 대한 수신 확인(ACK)을 텔레그램 서버에 전송합니다.
//
// 확인 실패는 파이프라인을 중단시키지 않습니다. 이미 만료된 콜백 등의 사유로
// 실패할 수 있으며, 이 경우 경고 로그만 남깁니다.
func (s *Sender) AnswerCallback(callbackID string) {
	if _, err := s.client.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		applog.WithComponentAndFields(componentRouter, applog.Fields{
			"callback_id": callbackID,
			"error":       err,
		}).Warn("콜백 수신 확인 실패: 만료되었거나 이미 응답된 콜백일 수 있습니다")
	}
}

// sendChunks 메시지를 분할 전송하고, 키보드가 있으면 마지막 조각에 첨부합니다.
func (s *Sender) sendChunks(ctx context.Context, chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	chunks := strutil.SplitByLength(text, messageMaxLength)
	for i, chunk := range chunks {
		if err := s.limiter(chatID).Wait(ctx); err != nil {
			return apperrors.Wrap(err, apperrors.Timeout, "메시지 전송 대기 중 컨텍스트가 취소되었습니다")
		}

		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		if keyboard != nil && i == len(chunks)-1 {
			msg.ReplyMarkup = *keyboard
		}

		if _, err := s.client.Send(msg); err != nil {
			return apperrors.Wrap(err, apperrors.ExecutionFailed, "텔레그램 메시지 전송에 실패했습니다")
		}
	}

	return nil
}
