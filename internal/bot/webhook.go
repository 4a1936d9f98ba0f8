package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	apperrors "github.com/dumoklab/dumok-bot/internal/pkg/errors"
	applog "github.com/dumoklab/dumok-bot/pkg/log"
)

// componentWebhook 웹훅 서버의 로깅용 컴포넌트 이름
const componentWebhook = "bot.webhook"

// webhookShutdownTimeout HTTP 서버 종료 시 처리 중인 요청을 기다리는 최대 시간입니다.
const webhookShutdownTimeout = 10 * time.Second

// WebhookServer Long Polling 대신 텔레그램 웹훅으로 업데이트를 수신하는 트랜스포트입니다.
//
// 수신된 업데이트의 처리는 Service.HandleUpdate로 위임하므로, 라우팅 동작은
// 폴링 모드와 완전히 동일합니다.
type WebhookServer struct {
	client     Client
	service    *Service
	publicURL  string
	listenAddr string

	echo *echo.Echo
}

// NewWebhookServer 웹훅 서버를 생성합니다.
//
// publicURL은 텔레그램 서버가 접근할 수 있는 HTTPS 주소이며,
// listenPort는 로컬에서 수신 대기할 포트입니다.
func NewWebhookServer(client Client, service *Service, publicURL string, listenPort int) *WebhookServer {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &WebhookServer{
		client:     client,
		service:    service,
		publicURL:  strings.TrimRight(publicURL, "/"),
		listenAddr: fmt.Sprintf(":%d", listenPort),
		echo:       e,
	}

	e.POST("/telegram/webhook", s.handleWebhook)
	e.GET("/healthz", s.handleHealth)

	return s
}

// Run 웹훅을 텔레그램 서버에 등록하고 HTTP 서버를 시작합니다.
//
// serviceStopCtx가 취소되면 웹훅 등록을 해제하고 서버를 정리한 후 반환합니다.
func (s *WebhookServer) Run(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	defer serviceStopWG.Done()

	if err := s.registerWebhook(); err != nil {
		return err
	}

	errC := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.listenAddr); err != nil && err != http.ErrServerClosed {
			errC <- err
		}
	}()

	applog.WithComponentAndFields(componentWebhook, applog.Fields{
		"listen_addr": s.listenAddr,
		"public_url":  s.publicURL,
	}).Info("봇 서비스 시작됨: 웹훅 수신 대기 중")

	select {
	case err := <-errC:
		return apperrors.Wrap(err, apperrors.System, "웹훅 HTTP 서버 실행에 실패했습니다")

	case <-serviceStopCtx.Done():
		s.shutdown()
		return nil
	}
}

// registerWebhook 텔레그램 서버에 웹훅 주소를 등록합니다.
func (s *WebhookServer) registerWebhook() error {
	webhookURL := s.publicURL + "/telegram/webhook"

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return apperrors.Wrap(err, apperrors.InvalidInput, "웹훅 주소가 올바르지 않습니다")
	}
	if _, err := s.client.Request(wh); err != nil {
		return apperrors.Wrap(err, apperrors.System, "텔레그램 웹훅 등록에 실패했습니다")
	}

	applog.WithComponentAndFields(componentWebhook, applog.Fields{
		"webhook_url": webhookURL,
	}).Debug("텔레그램 웹훅 등록 완료")

	return nil
}

// shutdown 웹훅 등록을 해제하고 HTTP 서버를 정리합니다.
func (s *WebhookServer) shutdown() {
	if _, err := s.client.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		applog.WithComponentAndFields(componentWebhook, applog.Fields{
			"error": err,
		}).Warn("텔레그램 웹훅 등록 해제 실패")
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		applog.WithComponentAndFields(componentWebhook, applog.Fields{
			"error": err,
		}).Error("웹훅 HTTP 서버 종료 실패")
		return
	}

	applog.WithComponent(componentWebhook).Info("봇 서비스 종료됨: 웹훅 서버 정리 완료")
}

// handleWebhook 텔레그램 서버가 전달하는 업데이트를 수신하여 처리합니다.
func (s *WebhookServer) handleWebhook(c echo.Context) error {
	var update tgbotapi.Update
	if err := json.NewDecoder(c.Request().Body).Decode(&update); err != nil {
		applog.WithComponentAndFields(componentWebhook, applog.Fields{
			"error": err,
		}).Warn("웹훅 요청 본문 파싱 실패")

		// 텔레그램 서버의 재전송 폭주를 막기 위해 파싱 실패도 200으로 응답합니다.
		return c.NoContent(http.StatusOK)
	}

	s.service.HandleUpdate(c.Request().Context(), update)

	return c.NoContent(http.StatusOK)
}

// handleHealth 상태 점검 엔드포인트입니다.
func (s *WebhookServer) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
