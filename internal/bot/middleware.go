package bot

import (
	"context"
	"slices"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	applog "github.com/dumoklab/dumok-bot/pkg/log"
)

// componentMiddleware 미들웨어의 로깅용 컴포넌트 이름
const componentMiddleware = "bot.middleware"

// CallbackHandlerFunc 라우터의 콜백 호출 파이프라인을 구성하는 함수 시그니처입니다.
// 반환값은 (응답 생성 여부, 에러)입니다.
type CallbackHandlerFunc func(ctx context.Context, callback *tgbotapi.CallbackQuery, envelope Envelope) (bool, error)

// Middleware 콜백 호출 파이프라인에 횡단 관심사(인증, 속도 제한 등)를 덧붙이는
// 합성 가능한 함수입니다. Chain()을 통해 명시적으로 조립됩니다.
type Middleware func(next CallbackHandlerFunc) CallbackHandlerFunc

// Chain 미들웨어들을 기본 핸들러에 순서대로 합성합니다.
// Chain(h, a, b)는 a(b(h))를 반환하므로, 목록의 앞쪽 미들웨어가 가장 바깥에서 실행됩니다.
func Chain(base CallbackHandlerFunc, middlewares ...Middleware) CallbackHandlerFunc {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

// WithAuth 허용된 채팅방에서 온 콜백만 통과시키는 인증 미들웨어를 생성합니다.
//
// allowedChatIDs가 비어있으면 모든 채팅방을 허용합니다.
// 차단된 콜백은 응답 없이 무시되며(수신 확인은 라우터가 이미 수행), 로그만 남깁니다.
func WithAuth(allowedChatIDs []int64) Middleware {
	return func(next CallbackHandlerFunc) CallbackHandlerFunc {
		return func(ctx context.Context, callback *tgbotapi.CallbackQuery, envelope Envelope) (bool, error) {
			if len(allowedChatIDs) > 0 && callback.Message != nil {
				chatID := callback.Message.Chat.ID
				if !slices.Contains(allowedChatIDs, chatID) {
					applog.WithComponentAndFields(componentMiddleware, applog.Fields{
						"chat_id": chatID,
						"user_id": callback.From.ID,
					}).Warn("허용되지 않은 채팅방의 콜백 차단됨")

					// 차단은 정상 처리로 간주하여 라우터의 대체 응답을 발생시키지 않습니다.
					return true, nil
				}
			}
			return next(ctx, callback, envelope)
		}
	}
}

// WithRateLimit 사용자별 액션 빈도를 제한하는 속도 제한 미들웨어를 생성합니다.
//
// perSecond는 사용자당 초당 허용 액션 수이며, 버스트는 그 2배까지 허용합니다.
// 한도를 초과한 콜백은 무시되고 경고 로그만 남깁니다.
func WithRateLimit(perSecond float64) Middleware {
	var mu sync.Mutex
	limiters := make(map[int64]*rate.Limiter)

	burst := int(perSecond * 2)
	if burst < 1 {
		burst = 1
	}

	limiterFor := func(userID int64) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		l, ok := limiters[userID]
		if !ok {
			l = rate.NewLimiter(rate.Limit(perSecond), burst)
			limiters[userID] = l
		}
		return l
	}

	return func(next CallbackHandlerFunc) CallbackHandlerFunc {
		return func(ctx context.Context, callback *tgbotapi.CallbackQuery, envelope Envelope) (bool, error) {
			if !limiterFor(callback.From.ID).Allow() {
				applog.WithComponentAndFields(componentMiddleware, applog.Fields{
					"user_id":    callback.From.ID,
					"module_key": envelope.ModuleKey,
					"action":     envelope.Action,
				}).Warn("사용자 속도 제한 초과로 콜백 무시됨")

				return true, nil
			}
			return next(ctx, callback, envelope)
		}
	}
}
