package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Handler 하나의 봇 기능(할일, 타이머, 날씨 등)을 구현하는 기능 핸들러의 계약입니다.
//
// 핸들러는 자신의 도메인에 대한 렌더링과 영속성을 모두 소유합니다.
// 라우터는 핸들러의 내부 상태를 조회하거나 변경하지 않습니다.
type Handler interface {
	// ModuleKey 콜백 데이터의 첫 세그먼트로 사용되는 핸들러 식별 키입니다.
	ModuleKey() string

	// MenuItem 메인 메뉴에 표시될 항목 정보를 반환합니다.
	MenuItem() MenuItem

	// HandleMessage 일반 텍스트 메시지의 처리를 시도합니다.
	//
	// 메시지를 자신의 것으로 수락(Claim)하여 처리했다면 true를 반환합니다.
	// false를 반환하면 다음 우선순위의 핸들러에게 기회가 넘어갑니다.
	// 다단계 텍스트 입력 흐름(예: "할일 내용을 입력해 주세요")에 사용됩니다.
	HandleMessage(ctx context.Context, message *tgbotapi.Message) (bool, error)

	// HandleCallback 라우팅된 콜백 액션을 수행합니다.
	//
	// action과 params는 콜백 데이터에서 파싱된 값이며, 의미 해석은 핸들러의 몫입니다.
	// 사용자에게 응답을 생성했다면 true를 반환합니다. false를 반환하면 라우터가
	// 대체 응답(알 수 없는 액션 안내)을 전송합니다.
	HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, action string, params []string) (bool, error)
}

// Initializer 시작 시 1회 초기화가 필요한 핸들러가 선택적으로 구현하는 인터페이스입니다.
// 테이블 생성, 영속 데이터 로드 등의 준비 작업을 수행합니다.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Cleaner 종료 시 정리 작업이 필요한 핸들러가 선택적으로 구현하는 인터페이스입니다.
type Cleaner interface {
	Cleanup()
}
