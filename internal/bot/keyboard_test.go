package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMenuItems(n int) []MenuItem {
	items := make([]MenuItem, 0, n)
	labels := []string{"할일", "연차", "출퇴근", "타이머", "알림"}
	for i := 0; i < n; i++ {
		items = append(items, MenuItem{
			Label:          labels[i%len(labels)],
			CallbackTarget: CallbackData(labels[i%len(labels)], "menu"),
		})
	}
	return items
}

func TestBuildKeyboard_RowShape(t *testing.T) {
	// 5개 항목, 폭 2 → [2, 2, 1] 형태가 되어야 한다.
	keyboard := BuildKeyboard(testMenuItems(5), 2, false)

	require.Len(t, keyboard.InlineKeyboard, 3)
	assert.Len(t, keyboard.InlineKeyboard[0], 2)
	assert.Len(t, keyboard.InlineKeyboard[1], 2)
	assert.Len(t, keyboard.InlineKeyboard[2], 1, "마지막 불완전한 행은 채우지 않고 그대로 배치되어야 함")
}

func TestBuildKeyboard_Deterministic(t *testing.T) {
	items := testMenuItems(5)

	first := BuildKeyboard(items, 2, true)
	second := BuildKeyboard(items, 2, true)

	assert.Equal(t, first, second, "동일한 입력은 구조적으로 동일한 키보드를 생성해야 함")
}

func TestBuildKeyboard_PreservesOrder(t *testing.T) {
	items := []MenuItem{
		{Label: "첫번째", CallbackTarget: "a:menu"},
		{Label: "두번째", CallbackTarget: "b:menu"},
		{Label: "세번째", CallbackTarget: "c:menu"},
	}

	keyboard := BuildKeyboard(items, 2, false)

	require.Len(t, keyboard.InlineKeyboard, 2)
	assert.Equal(t, "첫번째", keyboard.InlineKeyboard[0][0].Text)
	assert.Equal(t, "두번째", keyboard.InlineKeyboard[0][1].Text)
	assert.Equal(t, "세번째", keyboard.InlineKeyboard[1][0].Text)
}

func TestBuildKeyboard_Footer(t *testing.T) {
	keyboard := BuildKeyboard(testMenuItems(2), 2, true)

	require.Len(t, keyboard.InlineKeyboard, 2)
	footer := keyboard.InlineKeyboard[1]
	require.Len(t, footer, 1)
	require.NotNil(t, footer[0].CallbackData)
	assert.Equal(t, "main:menu", *footer[0].CallbackData, "푸터는 메인 메뉴 별칭으로 라우팅되어야 함")
}

func TestBuildKeyboard_DefaultWidth(t *testing.T) {
	// 폭이 0 이하이면 기본 폭(2)이 적용된다.
	keyboard := BuildKeyboard(testMenuItems(4), 0, false)

	require.Len(t, keyboard.InlineKeyboard, 2)
	assert.Len(t, keyboard.InlineKeyboard[0], 2)
}

func TestBuildKeyboard_EmptyItems(t *testing.T) {
	keyboard := BuildKeyboard(nil, 2, false)
	assert.Empty(t, keyboard.InlineKeyboard)

	withFooter := BuildKeyboard(nil, 2, true)
	require.Len(t, withFooter.InlineKeyboard, 1, "항목이 없어도 푸터 행은 추가되어야 함")
}

func TestBuildKeyboard_IconPrefix(t *testing.T) {
	keyboard := BuildKeyboard([]MenuItem{
		{Label: "할일 관리", Icon: "📝", CallbackTarget: "todo:menu"},
	}, 2, false)

	require.Len(t, keyboard.InlineKeyboard, 1)
	assert.Equal(t, "📝 할일 관리", keyboard.InlineKeyboard[0][0].Text)
}

func TestMenuOnlyKeyboard(t *testing.T) {
	keyboard := MenuOnlyKeyboard()

	require.Len(t, keyboard.InlineKeyboard, 1)
	require.Len(t, keyboard.InlineKeyboard[0], 1)
	require.NotNil(t, keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "main:menu", *keyboard.InlineKeyboard[0][0].CallbackData)
}
