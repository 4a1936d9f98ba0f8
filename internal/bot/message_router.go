package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	applog "github.com/dumoklab/dumok-bot/pkg/log"
)

// componentMessageRouter 메시지 라우터의 로깅용 컴포넌트 이름
const componentMessageRouter = "bot.message_router"

// MessageRouter 명령어가 아닌 일반 텍스트 메시지를 기능 핸들러에 배분합니다.
//
// 콜백 라우팅과 달리 대상 핸들러가 명시되어 있지 않으므로, 우선순위 순서로
// 모든 핸들러에게 수락 기회를 주고 처음으로 수락한 핸들러가 처리를 가져갑니다.
// 다단계 입력 흐름(할일 내용 입력 대기 등)이 이 경로로 동작합니다.
type MessageRouter struct {
	registry *Registry
}

// NewMessageRouter 메시지 라우터를 생성합니다.
func NewMessageRouter(registry *Registry) *MessageRouter {
	return &MessageRouter{registry: registry}
}

// Route 메시지를 우선순위 순서로 핸들러들에게 제안합니다.
//
// 어떤 핸들러가 수락하면 즉시 순회를 멈추고 true를 반환합니다. 핸들러의 에러와
// panic은 '수락하지 않음'으로 취급되어 다음 핸들러로 넘어갑니다. 끝까지 아무도
// 수락하지 않으면 false를 반환하며, 메시지는 조용히 버려집니다. 봇이 참여한
// 단체 채팅방의 일상 대화에 일일이 반응하지 않기 위한 규칙입니다.
func (r *MessageRouter) Route(ctx context.Context, message *tgbotapi.Message) bool {
	if message == nil {
		return false
	}

	for _, handler := range r.registry.Ordered() {
		claimed, err := r.offer(ctx, handler, message)
		if err != nil {
			applog.WithComponentAndFields(componentMessageRouter, applog.Fields{
				"module_key": handler.ModuleKey(),
				"chat_id":    message.Chat.ID,
				"error":      fmt.Sprintf("%+v", err),
			}).Error("메시지 처리 중 핸들러 에러: 다음 핸들러로 계속 진행합니다")
			continue
		}
		if claimed {
			return true
		}
	}

	return false
}

// offer 단일 핸들러에게 메시지 수락을 제안합니다. panic은 에러로 변환됩니다.
func (r *MessageRouter) offer(ctx context.Context, handler Handler, message *tgbotapi.Message) (claimed bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			claimed = false
			err = fmt.Errorf("핸들러 실행 중 panic 발생: %v", rec)
		}
	}()

	return handler.HandleMessage(ctx, message)
}
