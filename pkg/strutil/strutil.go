// Package strutil 문자열 처리를 위한 유틸리티 함수들을 제공합니다.
package strutil

import (
	"strings"
)

// NormalizeSpaces 문자열의 앞뒤 공백을 제거하고 연속된 공백을 하나로 축약합니다.
// 예: "  hello   world  " -> "hello world"
func NormalizeSpaces(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}

// SplitByLength 문자열을 최대 maxLen 글자(룬 단위) 단위의 조각으로 분할합니다.
//
// 한글과 같은 멀티바이트 문자가 조각 경계에서 깨지지 않도록 룬 단위로 자르며,
// 가능한 경우 줄바꿈 위치에서 분할하여 메시지의 가독성을 유지합니다.
// maxLen이 0 이하이거나 입력이 비어있으면 입력을 그대로 단일 조각으로 반환합니다.
func SplitByLength(s string, maxLen int) []string {
	if maxLen <= 0 || s == "" {
		return []string{s}
	}

	runes := []rune(s)
	if len(runes) <= maxLen {
		return []string{s}
	}

	var chunks []string
	for len(runes) > maxLen {
		cut := maxLen

		// 조각의 뒤쪽 절반에서 줄바꿈을 찾으면 그 위치에서 자른다.
		for i := maxLen - 1; i >= maxLen/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}

		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}

	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}

	return chunks
}
