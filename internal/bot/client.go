// Package bot 두목봇의 핵심 라우팅 계층을 제공합니다.
//
// 텔레그램으로부터 수신한 콜백/메시지 이벤트를 등록된 기능 핸들러(Feature Handler)로
// 라우팅하며, 메뉴 키보드 생성, 콜백 중복 제거, 미들웨어 체인을 담당합니다.
// 개별 기능의 비즈니스 로직과 영속성은 각 핸들러가 소유하며, 라우터는 핸들러의
// 내부 상태를 들여다보지 않습니다.
package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client 텔레그램 봇 API와의 통신을 추상화한 인터페이스입니다.
// 테스트에서 실제 API 호출 없이 동작을 검증할 수 있도록 분리되어 있습니다.
type Client interface {
	// 봇 정보 조회
	GetSelf() tgbotapi.User

	// 메시지 송수신
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)

	// 리소스 정리
	StopReceivingUpdates()
}

// tgClient tgbotapi.BotAPI를 래핑하여 Client 인터페이스를 구현하는 구조체입니다.
//
// 임베딩(Embedding)을 통해 tgbotapi.BotAPI의 모든 메서드를 상속받으며,
// Client 인터페이스에 정의되지 않은 추가 메서드(예: GetSelf)를 구현합니다.
type tgClient struct {
	*tgbotapi.BotAPI
}

// GetSelf 현재 봇의 사용자 정보를 반환합니다.
func (c *tgClient) GetSelf() tgbotapi.User {
	return c.Self
}

// NewClient 봇 토큰으로 텔레그램 API 클라이언트를 생성합니다.
func NewClient(botToken string) (Client, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &tgClient{BotAPI: api}, nil
}
