package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// defaultKeyboardWidth 메뉴 키보드 한 행에 배치되는 기본 버튼 수입니다.
const defaultKeyboardWidth = 2

// MenuItem 메뉴 키보드에 표시되는 단일 항목입니다.
type MenuItem struct {
	Label          string // 버튼에 표시될 이름
	Icon           string // 이름 앞에 붙는 이모지 아이콘 (없으면 빈 문자열)
	CallbackTarget string // 버튼 클릭 시 전송되는 콜백 데이터 (예: "todo:menu")
}

// buttonText 아이콘과 이름을 조합한 버튼 표시 텍스트를 반환합니다.
func (m MenuItem) buttonText() string {
	if m.Icon == "" {
		return m.Label
	}
	return fmt.Sprintf("%s %s", m.Icon, m.Label)
}

// BuildKeyboard 메뉴 항목 목록을 2차원 인라인 키보드 그리드로 변환합니다.
//
// 순수 함수로, 동일한 입력은 항상 구조적으로 동일한 출력을 생성합니다.
// 입력 목록을 순서대로 순회하며 width개마다 새 행을 시작하고, 마지막의
// 불완전한 행은 채우지 않고 그대로 배치합니다.
//
// withFooter가 true이면 그리드 뒤에 메인 메뉴 복귀 버튼 행을 추가합니다.
// width가 0 이하이면 기본값(2)을 사용합니다.
func BuildKeyboard(items []MenuItem, width int, withFooter bool) tgbotapi.InlineKeyboardMarkup {
	if width <= 0 {
		width = defaultKeyboardWidth
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for _, item := range items {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(item.buttonText(), item.CallbackTarget))
		if len(row) == width {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	if withFooter {
		rows = append(rows, FooterRow())
	}

	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// FooterRow 메인 메뉴로 복귀하는 고정 푸터 행을 반환합니다.
func FooterRow() []tgbotapi.InlineKeyboardButton {
	return []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("🏠 메인 메뉴", CallbackData(mainModuleAlias, defaultAction)),
	}
}

// MenuOnlyKeyboard 메인 메뉴 복귀 버튼 하나만 있는 키보드를 반환합니다.
// 라우팅 실패나 에러 안내 메시지에 사용됩니다.
func MenuOnlyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{FooterRow()},
	}
}
