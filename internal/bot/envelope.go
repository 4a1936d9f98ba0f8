package bot

import (
	"strings"
)

const (
	// callbackSeparator 콜백 데이터에서 모듈 키, 액션, 파라미터를 구분하는 문자입니다.
	// 형식: "module:action:param1:param2..."
	callbackSeparator = ":"

	// defaultAction 콜백 데이터에 액션이 명시되지 않았을 때 사용되는 기본 액션입니다.
	// 예: "weather" → 날씨 기능의 메뉴 화면
	defaultAction = "menu"

	// mainModuleAlias 메인 메뉴를 가리키는 모듈 키 별칭입니다.
	// 라우팅 시 시스템 핸들러(moduleKeySystem)로 재작성됩니다.
	mainModuleAlias = "main"

	// ModuleKeySystem 메인 메뉴/도움말/상태를 담당하는 시스템 핸들러의 모듈 키입니다.
	ModuleKeySystem = "system"
)

// Envelope 수신된 콜백 데이터를 파싱한 결과입니다.
//
// 콜백이 수신될 때마다 새로 생성되며, 핸들러 호출이 끝나면 폐기됩니다.
// 어디에도 영속화되지 않습니다.
type Envelope struct {
	// ModuleKey 대상 기능 핸들러를 식별하는 키입니다. 빈 문자열이면 라우팅 불가로 처리됩니다.
	ModuleKey string

	// Action 핸들러 내에서 수행할 작업입니다. 생략 시 "menu"로 설정됩니다.
	Action string

	// Params 순서가 의미를 갖는 위치 기반 파라미터 목록입니다.
	// 의미 해석은 전적으로 대상 기능 핸들러의 몫입니다.
	Params []string
}

// ParseCallback 콜론으로 구분된 콜백 데이터 문자열을 Envelope로 파싱합니다.
//
// 이 함수는 전체 함수(Total Function)로, 어떤 입력에도 panic 없이 항상 Envelope를
// 반환합니다. 빈 문자열이나 형식이 잘못된 입력은 빈 ModuleKey를 갖는 Envelope가 되며,
// 라우터는 이를 '라우팅 불가'로 취급할 뿐 에러를 발생시키지 않습니다.
//
// 파싱 규칙:
//   - "todo:delete:64f1" → {ModuleKey: "todo", Action: "delete", Params: ["64f1"]}
//   - "weather"          → {ModuleKey: "weather", Action: "menu", Params: []}
//   - ""                 → {ModuleKey: "", Action: "menu", Params: []}
func ParseCallback(data string) Envelope {
	envelope := Envelope{
		Action: defaultAction,
		Params: []string{},
	}

	if data == "" {
		return envelope
	}

	segments := strings.Split(data, callbackSeparator)

	envelope.ModuleKey = segments[0]
	if len(segments) >= 2 && segments[1] != "" {
		envelope.Action = segments[1]
	}
	if len(segments) > 2 {
		envelope.Params = segments[2:]
	}

	return envelope
}

// CallbackData 모듈 키, 액션, 파라미터를 콜백 데이터 문자열로 조립합니다.
// 인라인 키보드 버튼의 콜백 값을 만들 때 사용합니다.
func CallbackData(moduleKey, action string, params ...string) string {
	parts := append([]string{moduleKey, action}, params...)
	return strings.Join(parts, callbackSeparator)
}
