// Package mocks 기능 핸들러 테스트에서 사용하는 텔레그램 클라이언트 대역을 제공합니다.
package mocks

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// RecordingClient 전송된 Chattable을 순서대로 기록하는 bot.Client 구현체입니다.
type RecordingClient struct {
	mu    sync.Mutex
	calls []tgbotapi.Chattable

	// SendErr 설정 시 Send 호출이 해당 에러를 반환합니다.
	SendErr error
}

// NewRecordingClient 기록용 클라이언트를 생성합니다.
func NewRecordingClient() *RecordingClient {
	return &RecordingClient{}
}

func (c *RecordingClient) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "dumokbot_test"}
}

func (c *RecordingClient) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	ch := make(chan tgbotapi.Update)
	close(ch)
	return ch
}

func (c *RecordingClient) Send(chattable tgbotapi.Chattable) (tgbotapi.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, chattable)
	return tgbotapi.Message{MessageID: len(c.calls)}, c.SendErr
}

func (c *RecordingClient) Request(chattable tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, chattable)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (c *RecordingClient) StopReceivingUpdates() {}

// Calls 기록된 호출 목록의 복사본을 반환합니다.
func (c *RecordingClient) Calls() []tgbotapi.Chattable {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]tgbotapi.Chattable, len(c.calls))
	copy(out, c.calls)
	return out
}

// SentMessages 전송된 일반 메시지 목록을 반환합니다.
func (c *RecordingClient) SentMessages() []tgbotapi.MessageConfig {
	var out []tgbotapi.MessageConfig
	for _, call := range c.Calls() {
		if msg, ok := call.(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

// LastMessage 마지막으로 전송된 일반 메시지를 반환합니다. 없으면 nil입니다.
func (c *RecordingClient) LastMessage() *tgbotapi.MessageConfig {
	messages := c.SentMessages()
	if len(messages) == 0 {
		return nil
	}
	return &messages[len(messages)-1]
}
