package bot

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	applog "github.com/dumoklab/dumok-bot/pkg/log"
)

// componentService 봇 서비스의 로깅용 컴포넌트 이름
const componentService = "bot.service"

const (
	// pollTimeout 텔레그램 Long Polling 대기 시간(초)입니다.
	pollTimeout = 60

	// shutdownWaitTimeout 종료 시 실행 중인 처리 고루틴을 기다리는 최대 시간입니다.
	// 초과 시 좀비 고루틴이 남을 수 있으나, 프로세스 종료 시 OS가 정리합니다.
	shutdownWaitTimeout = 15 * time.Second
)

// Service 텔레그램 업데이트의 수신과 배분을 담당하는 봇 서비스입니다.
//
// 수신 루프(Receiver)는 Long Polling으로 업데이트를 받아 종류별로 분류한 뒤
// 별도 고루틴으로 디스패치하며, 세마포어로 동시 처리 수를 제한합니다.
// 세마포어가 가득 차면 새 업데이트를 드롭하여 시스템을 보호합니다(Backpressure).
type Service struct {
	client         Client
	sender         *Sender
	callbackRouter *CallbackRouter
	messageRouter  *MessageRouter
	registry       *Registry

	allowedChatIDs []int64

	// semaphore 동시에 처리할 수 있는 업데이트 수를 제한합니다.
	semaphore chan struct{}
}

// NewService 봇 서비스를 생성합니다.
//
// concurrency는 동시에 처리할 수 있는 업데이트 수이며, 1 미만이면 1로 보정됩니다.
// allowedChatIDs가 비어있으면 모든 채팅방의 업데이트를 처리합니다.
func NewService(client Client, sender *Sender, callbackRouter *CallbackRouter, messageRouter *MessageRouter, registry *Registry, allowedChatIDs []int64, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = 1
	}

	return &Service{
		client:         client,
		sender:         sender,
		callbackRouter: callbackRouter,
		messageRouter:  messageRouter,
		registry:       registry,
		allowedChatIDs: allowedChatIDs,
		semaphore:      make(chan struct{}, concurrency),
	}
}

// Run 봇 서비스의 메인 수신 루프를 시작합니다.
//
// serviceStopCtx가 취소되거나 업데이트 채널이 닫힐 때까지 블로킹되며,
// 종료 시 신규 수신을 먼저 중단한 뒤 실행 중인 처리 고루틴이 모두 끝나기를
// 제한 시간 내에서 대기합니다.
func (s *Service) Run(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) {
	defer serviceStopWG.Done()

	config := tgbotapi.NewUpdate(0)
	config.Timeout = pollTimeout

	// GetUpdatesChan()은 내부적으로 별도 고루틴을 생성하여 지속적으로 업데이트를 가져옵니다.
	updateC := s.client.GetUpdatesChan(config)

	applog.WithComponentAndFields(componentService, applog.Fields{
		"bot_username": s.client.GetSelf().UserName,
		"concurrency":  cap(s.semaphore),
	}).Info("봇 서비스 시작됨: Long Polling 활성화")

	var wg sync.WaitGroup
	defer s.cleanup(&wg)

	s.receiveAndDispatch(serviceStopCtx, updateC, &wg)
}

// HandleUpdate 업데이트 하나를 종류별로 분류하여 처리합니다.
//
// 수신 루프와 웹훅 트랜스포트가 공유하는 단일 진입점입니다.
// 분류 우선순위: 콜백 쿼리 → 봇 명령어 → 일반 텍스트 메시지.
// 그 외의 업데이트(사진, 스티커, 멤버 변경 등)는 무시합니다.
func (s *Service) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		// 채팅방을 알 수 없는 콜백(원본 메시지 만료 등)도 수신 확인은 받아야
		// 하므로 차단하지 않고 라우터로 넘깁니다.
		if chatID := chatIDOfCallback(update.CallbackQuery); chatID != 0 && !s.chatAllowed(chatID) {
			return
		}
		s.callbackRouter.Route(ctx, update.CallbackQuery)

	case update.Message != nil && update.Message.IsCommand():
		if !s.chatAllowed(update.Message.Chat.ID) {
			return
		}
		s.handleCommand(ctx, update.Message)

	case update.Message != nil && update.Message.Text != "":
		if !s.chatAllowed(update.Message.Chat.ID) {
			return
		}
		if !s.messageRouter.Route(ctx, update.Message) {
			// 아무 핸들러도 수락하지 않은 메시지는 조용히 버립니다.
			applog.WithComponentAndFields(componentService, applog.Fields{
				"chat_id": update.Message.Chat.ID,
			}).Debug("수락되지 않은 일반 메시지를 무시합니다")
		}
	}
}

// receiveAndDispatch 업데이트를 수신하여 처리 고루틴으로 디스패치하는 메인 루프입니다.
//
// 세마포어에 빈 슬롯이 있으면 고루틴을 생성하여 처리하고, 가득 차있으면 해당
// 업데이트를 드롭하고 경고 로그를 남깁니다. 수신 루프 자체는 절대 블로킹되지
// 않으므로, 특정 기능의 처리 지연이 전체 수신을 멈추게 하지 않습니다.
func (s *Service) receiveAndDispatch(serviceStopCtx context.Context, updateC tgbotapi.UpdatesChannel, wg *sync.WaitGroup) {
	for {
		select {
		case update, ok := <-updateC:
			if !ok {
				applog.WithComponent(componentService).Error("Long Polling 채널 종료됨: 수신 루프를 종료합니다")
				return
			}

			if update.CallbackQuery == nil && update.Message == nil {
				continue
			}

			select {
			case s.semaphore <- struct{}{}:
				wg.Add(1)
				go func(u tgbotapi.Update) {
					defer wg.Done()
					defer func() { <-s.semaphore }()
					s.HandleUpdate(serviceStopCtx, u)
				}(update)

			case <-serviceStopCtx.Done():
				return

			default:
				// Backpressure: 동시 처리 한도 초과 시 업데이트를 드롭합니다.
				applog.WithComponentAndFields(componentService, applog.Fields{
					"capacity": cap(s.semaphore),
					"active":   len(s.semaphore),
				}).Warn("처리 용량 초과로 업데이트 드롭됨: 빈번 발생 시 동시 처리 수 증가 검토 필요")
			}

		case <-serviceStopCtx.Done():
			return
		}
	}
}

// handleCommand 봇 명령어("/"로 시작하는 메시지)를 처리합니다.
func (s *Service) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()

	applog.WithComponentAndFields(componentService, applog.Fields{
		"chat_id": message.Chat.ID,
		"command": command,
	}).Debug("봇 명령어 수신됨")

	switch command {
	case "start", "menu":
		s.sendMainMenu(ctx, message.Chat.ID)

	case "help":
		s.sendHelp(ctx, message.Chat.ID)

	default:
		text := fmt.Sprintf("'/%s'는 지원하지 않는 명령어입니다. /menu 명령어로 메인 메뉴를 열 수 있습니다.", command)
		if err := s.sender.SendText(ctx, message.Chat.ID, text); err != nil {
			applog.WithComponentAndFields(componentService, applog.Fields{
				"chat_id": message.Chat.ID,
				"error":   err,
			}).Error("명령어 안내 메시지 전송 실패")
		}
	}
}

// sendMainMenu 등록된 기능 목록으로 구성된 메인 메뉴를 전송합니다.
func (s *Service) sendMainMenu(ctx context.Context, chatID int64) {
	keyboard := BuildKeyboard(s.registry.MenuItems(), defaultKeyboardWidth, false)
	if err := s.sender.SendMenu(ctx, chatID, "<b>두목봇 메인 메뉴</b>\n\n원하시는 기능을 선택해 주세요.", keyboard); err != nil {
		applog.WithComponentAndFields(componentService, applog.Fields{
			"chat_id": chatID,
			"error":   err,
		}).Error("메인 메뉴 전송 실패")
	}
}

// sendHelp 사용 가능한 명령어 안내를 전송합니다.
func (s *Service) sendHelp(ctx context.Context, chatID int64) {
	help := "<b>두목봇 사용 안내</b>\n\n" +
		"/menu - 메인 메뉴 열기\n" +
		"/help - 사용 안내 보기\n\n" +
		"기능 사용은 메뉴의 버튼을 통해 이루어집니다."
	if err := s.sender.SendText(ctx, chatID, help); err != nil {
		applog.WithComponentAndFields(componentService, applog.Fields{
			"chat_id": chatID,
			"error":   err,
		}).Error("도움말 전송 실패")
	}
}

// chatAllowed 허용된 채팅방 목록에 포함되어 있는지 확인합니다.
// 목록이 비어있으면 모든 채팅방을 허용합니다.
func (s *Service) chatAllowed(chatID int64) bool {
	if len(s.allowedChatIDs) == 0 {
		return true
	}
	return slices.Contains(s.allowedChatIDs, chatID)
}

// cleanup 수신 루프 종료 후 리소스를 정리합니다.
//
// 신규 수신을 먼저 중단한 뒤, 실행 중인 처리 고루틴이 모두 끝나기를
// 제한 시간 내에서 대기합니다.
func (s *Service) cleanup(wg *sync.WaitGroup) {
	s.client.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		applog.WithComponent(componentService).Info("봇 서비스 종료됨: 모든 처리 고루틴 정리 완료")
	case <-time.After(shutdownWaitTimeout):
		applog.WithComponentAndFields(componentService, applog.Fields{
			"timeout": shutdownWaitTimeout,
		}).Error("봇 서비스 종료 타임아웃: 일부 처리 고루틴이 아직 실행 중일 수 있습니다")
	}
}

// chatIDOfCallback 콜백이 속한 채팅방 ID를 반환합니다. 알 수 없으면 0입니다.
func chatIDOfCallback(callback *tgbotapi.CallbackQuery) int64 {
	if callback.Message == nil {
		return 0
	}
	return callback.Message.Chat.ID
}
