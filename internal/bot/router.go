package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	applog "github.com/dumoklab/dumok-bot/pkg/log"
)

// componentRouter 라우터의 로깅용 컴포넌트 이름
const componentRouter = "bot.router"

const (
	// minDedupWindow, maxDedupWindow 중복 제거 기록 유지 시간의 허용 범위입니다.
	// 설정값이 범위를 벗어나면 경계값으로 보정됩니다.
	minDedupWindow = 1 * time.Second
	maxDedupWindow = 5 * time.Second
)

// 라우터가 직접 전송하는 안내 메시지 문구
const (
	msgFeatureUnavailable = "요청하신 기능을 찾을 수 없습니다. 비활성화되었거나 아직 준비되지 않은 기능일 수 있습니다."
	msgProcessingError    = "요청 처리 중 오류가 발생하였습니다. 잠시 후 다시 시도해 주세요."
	msgUnknownAction      = "알 수 없는 요청입니다. 메인 메뉴에서 다시 시작해 주세요."
)

// CallbackRouter 인라인 키보드 콜백을 기능 핸들러로 중계하는 단일 라우터입니다.
//
// 수신된 모든 콜백은 검증, 중복 제거, 파싱, 핸들러 결정, 수신 확인, 호출의
// 고정된 파이프라인을 거칩니다. 어떤 입력이 들어와도 라우터 자신은 panic 하지
// 않으며, 핸들러의 panic과 에러는 모두 여기서 흡수되어 사용자 안내로 변환됩니다.
type CallbackRouter struct {
	registry    *Registry
	sender      *Sender
	dedup       DedupStore
	dedupWindow time.Duration

	// invoke 미들웨어가 합성된 최종 호출 체인입니다.
	invoke CallbackHandlerFunc
}

// NewCallbackRouter 콜백 라우터를 생성합니다.
//
// dedupWindow가 허용 범위(1~5초)를 벗어나면 가까운 경계값으로 보정됩니다.
// middlewares는 핸들러 호출을 감싸는 순서대로 전달합니다.
func NewCallbackRouter(registry *Registry, sender *Sender, dedup DedupStore, dedupWindow time.Duration, middlewares ...Middleware) *CallbackRouter {
	if dedupWindow < minDedupWindow {
		dedupWindow = minDedupWindow
	}
	if dedupWindow > maxDedupWindow {
		dedupWindow = maxDedupWindow
	}

	r := &CallbackRouter{
		registry:    registry,
		sender:      sender,
		dedup:       dedup,
		dedupWindow: dedupWindow,
	}
	r.invoke = Chain(r.dispatch, middlewares...)

	return r
}

// Route 수신된 콜백 쿼리 하나를 파이프라인에 태웁니다.
//
// 모든 수신 콜백은 성공 여부와 관계없이 정확히 한 번 수신 확인(ACK)되며,
// 정상 처리된 콜백은 핸들러의 응답 또는 라우터의 대체 응답 중 정확히 하나를
// 발생시킵니다. 중복 제거로 걸러진 콜백은 수신 확인만 받고 응답은 생략됩니다.
func (r *CallbackRouter) Route(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback == nil {
		return
	}

	// 1. 검증: 콜백 데이터가 비어있으면 수신 확인만 하고 종료합니다.
	if callback.Data == "" {
		r.sender.AnswerCallback(callback.ID)
		return
	}

	// 2. 중복 제거: 같은 사용자의 같은 콜백 재전송을 최선 노력으로 걸러냅니다.
	dedupKey := r.dedupKey(callback)
	if r.dedup.Seen(dedupKey) {
		applog.WithComponentAndFields(componentRouter, applog.Fields{
			"user_id": callback.From.ID,
			"data":    callback.Data,
		}).Debug("중복 콜백 감지: 수신 확인 후 무시합니다")

		r.sender.AnswerCallback(callback.ID)
		return
	}
	r.dedup.MarkSeen(dedupKey, r.dedupWindow)

	// 3. 파싱: 어떤 입력이든 에러 없이 Envelope로 변환됩니다.
	envelope := ParseCallback(callback.Data)

	// 4. 핸들러 결정: 대상이 없으면 라우팅 실패 안내를 전송합니다.
	handler, ok := r.registry.Resolve(envelope.ModuleKey)
	if !ok {
		applog.WithComponentAndFields(componentRouter, applog.Fields{
			"user_id":    callback.From.ID,
			"module_key": envelope.ModuleKey,
			"action":     envelope.Action,
		}).Warn("라우팅 실패: 등록되지 않은 모듈 키입니다")

		r.sender.AnswerCallback(callback.ID)
		r.replyFallback(ctx, callback, msgFeatureUnavailable)
		return
	}

	// 5. 수신 확인: 핸들러 호출보다 먼저 전송하여, 처리가 오래 걸리더라도
	//    클라이언트의 로딩 표시가 계속 남지 않도록 합니다.
	r.sender.AnswerCallback(callback.ID)

	// 6. 호출: panic과 에러는 모두 흡수하여 사용자 안내로 변환합니다.
	replied, err := r.safeInvoke(ctx, handler, callback, envelope)
	if err != nil {
		applog.WithComponentAndFields(componentRouter, applog.Fields{
			"user_id":    callback.From.ID,
			"module_key": envelope.ModuleKey,
			"action":     envelope.Action,
			"error":      fmt.Sprintf("%+v", err),
		}).Error("콜백 처리 실패")

		r.replyFallback(ctx, callback, msgProcessingError)
		return
	}

	// 7. 대체 응답: 핸들러가 응답을 생성하지 않았다면 라우터가 대신 응답합니다.
	if !replied {
		applog.WithComponentAndFields(componentRouter, applog.Fields{
			"module_key": envelope.ModuleKey,
			"action":     envelope.Action,
		}).Warn("핸들러가 응답을 생성하지 않았습니다: 대체 응답을 전송합니다")

		r.replyFallback(ctx, callback, msgUnknownAction)
	}
}

// dedupKey 사용자와 콜백을 식별하는 중복 제거 키를 생성합니다.
// 콜백 ID가 있으면 ID를, 없으면 콜백 데이터를 식별자로 사용합니다.
func (r *CallbackRouter) dedupKey(callback *tgbotapi.CallbackQuery) string {
	id := callback.ID
	if id == "" {
		id = callback.Data
	}
	return fmt.Sprintf("%d%s%s", callback.From.ID, callbackSeparator, id)
}

// dispatch 미들웨어 체인의 말단에서 실제 핸들러를 호출합니다.
func (r *CallbackRouter) dispatch(ctx context.Context, callback *tgbotapi.CallbackQuery, envelope Envelope) (bool, error) {
	handler, ok := r.registry.Resolve(envelope.ModuleKey)
	if !ok {
		return false, nil
	}
	return handler.HandleCallback(ctx, callback, envelope.Action, envelope.Params)
}

// safeInvoke 핸들러 호출을 panic 복구로 감싸서 실행합니다.
func (r *CallbackRouter) safeInvoke(ctx context.Context, handler Handler, callback *tgbotapi.CallbackQuery, envelope Envelope) (replied bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			applog.WithComponentAndFields(componentRouter, applog.Fields{
				"module_key": handler.ModuleKey(),
				"action":     envelope.Action,
				"panic":      rec,
			}).Error("핸들러 실행 중 panic 발생")

			replied = false
			err = fmt.Errorf("핸들러 실행 중 panic 발생: %v", rec)
		}
	}()

	return r.invoke(ctx, callback, envelope)
}

// replyFallback 라우터 명의의 안내 메시지를 메인 메뉴 버튼과 함께 전송합니다.
// 원본 메시지를 알 수 없는 콜백(메시지가 만료된 경우 등)이면 조용히 생략합니다.
func (r *CallbackRouter) replyFallback(ctx context.Context, callback *tgbotapi.CallbackQuery, text string) {
	if callback.Message == nil {
		return
	}

	if err := r.sender.SendMenu(ctx, callback.Message.Chat.ID, text, MenuOnlyKeyboard()); err != nil {
		applog.WithComponentAndFields(componentRouter, applog.Fields{
			"chat_id": callback.Message.Chat.ID,
			"error":   err,
		}).Error("대체 응답 전송 실패")
	}
}
