package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/dumoklab/dumok-bot/internal/bot"
	"github.com/dumoklab/dumok-bot/internal/config"
	"github.com/dumoklab/dumok-bot/internal/feature/fortune"
	"github.com/dumoklab/dumok-bot/internal/feature/leave"
	"github.com/dumoklab/dumok-bot/internal/feature/reminder"
	"github.com/dumoklab/dumok-bot/internal/feature/system"
	"github.com/dumoklab/dumok-bot/internal/feature/timer"
	"github.com/dumoklab/dumok-bot/internal/feature/todo"
	"github.com/dumoklab/dumok-bot/internal/feature/tts"
	"github.com/dumoklab/dumok-bot/internal/feature/weather"
	"github.com/dumoklab/dumok-bot/internal/feature/worktime"
	"github.com/dumoklab/dumok-bot/internal/pkg/version"
	"github.com/dumoklab/dumok-bot/internal/storage"
	applog "github.com/dumoklab/dumok-bot/pkg/log"
)

// 빌드 정보 변수 (ldflags로 주입됨)
var (
	Version   = "dev"     // 애플리케이션 버전
	Commit    = "unknown" // Git 커밋 해시
	BuildDate = "unknown" // 빌드 날짜
)

const banner = `
  ____                            _      ____         _
 |  _ \  _   _  _ __ ___    ___  | | __ | __ )   ___  | |_
 | | | || | | || '_ ` + "`" + ` _ \  / _ \ | |/ / |  _ \  / _ \ | __|
 | |_| || |_| || | | | | || (_) ||   <  | |_) || (_) || |_
 |____/  \__,_||_| |_| |_| \___/ |_|\_\ |____/  \___/  \__|
                                                      %s
--------------------------------------------------------------------------------
`

func main() {
	// .env 파일이 있으면 환경 변수로 로드한다. (없어도 무방)
	_ = godotenv.Load()

	// 1. 환경설정 로드 (로그 설정에 필요하므로 가장 먼저 수행한다)
	appConfig, err := config.Load()
	if err != nil {
		// 로거 초기화 전이므로 표준 에러에 출력
		fmt.Fprintf(os.Stderr, "[FATAL] 환경설정 로드 실패: %v\n", err)
		os.Exit(1)
	}

	// 2. 로그 시스템 초기화
	var logOpts applog.Options
	if appConfig.Debug {
		logOpts = applog.NewDevelopmentOptions(config.AppName)
	} else {
		logOpts = applog.NewProductionOptions(config.AppName)
	}

	appLogCloser, err := applog.Setup(logOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] 로그 시스템 초기화 실패. 서버 구동을 중단합니다. (Cause: %v)\n", err)
		os.Exit(1)
	}
	defer appLogCloser.Close()

	// 3. 로그 레벨 최종 확정
	applog.SetDebugMode(appConfig.Debug)

	// 아스키아트 출력
	fmt.Printf(banner, Version)

	// 빌드 정보 설정 (전역 싱글톤 등록)
	version.Set(version.Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	})

	applog.WithComponentAndFields("main", log.Fields{
		"version": version.Get().String(),
		"env":     map[bool]string{true: "development", false: "production"}[appConfig.Debug],
	}).Info("두목봇 초기화 시작")

	if err := run(appConfig); err != nil {
		applog.WithComponentAndFields("main", log.Fields{
			"error": fmt.Sprintf("%+v", err),
		}).Error("두목봇 초기화 실패")

		log.Fatal("초기화 실패로 프로그램을 종료합니다")
	}
}

// run 의존성을 조립하고 봇 서비스를 가동합니다. 종료 시그널을 받을 때까지 블로킹됩니다.
func run(appConfig *config.AppConfig) error {
	// 데이터베이스 연결
	db, err := storage.Open(appConfig.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	// 텔레그램 클라이언트 및 발신기 생성
	client, err := bot.NewClient(appConfig.Telegram.BotToken)
	if err != nil {
		return err
	}
	sender := bot.NewSender(client)

	// 기능 핸들러 레지스트리 구성
	// 시스템 핸들러의 메뉴 목록은 레지스트리 구성 완료 후에야 확정되므로
	// 클로저로 지연 조회합니다.
	var registry *bot.Registry
	systemHandler := system.New(sender, func() []bot.MenuItem { return registry.MenuItems() })

	features := appConfig.Features
	registrations := []bot.Registration{
		{Handler: systemHandler, Priority: 0, Required: true, Enabled: true},
		{Handler: todo.New(db, sender), Priority: 10, Required: true, Enabled: features.Todo.Enabled},
		{Handler: leave.New(db, sender), Priority: 20, Enabled: features.Leave.Enabled},
		{Handler: worktime.New(db, sender), Priority: 30, Enabled: features.Worktime.Enabled},
		{Handler: timer.New(sender), Priority: 40, Enabled: features.Timer.Enabled},
		{Handler: reminder.New(db, sender), Priority: 50, Enabled: features.Reminder.Enabled},
		{Handler: weather.New(sender, features.Weather.APIURL, features.Weather.DefaultCity), Priority: 60, Enabled: features.Weather.Enabled},
		{Handler: fortune.New(sender, features.Fortune.SourceURL), Priority: 70, Enabled: features.Fortune.Enabled},
		{Handler: tts.New(sender, features.TTS.APIURL), Priority: 80, Enabled: features.TTS.Enabled},
	}

	serviceStopCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, err = bot.NewRegistry(serviceStopCtx, registrations)
	if err != nil {
		return err
	}
	defer registry.Cleanup()

	// 라우터 구성
	callbackRouter := bot.NewCallbackRouter(
		registry,
		sender,
		bot.NewMemoryDedupStore(),
		appConfig.Router.DedupWindowDuration(),
		bot.WithAuth(appConfig.Telegram.AllowedChatIDs),
		bot.WithRateLimit(appConfig.Router.UserRateLimit),
	)
	messageRouter := bot.NewMessageRouter(registry)

	botService := bot.NewService(
		client,
		sender,
		callbackRouter,
		messageRouter,
		registry,
		appConfig.Telegram.AllowedChatIDs,
		appConfig.Router.CommandConcurrency,
	)

	// 봇 서비스 가동 (전송 모드에 따라 폴링 또는 웹훅)
	serviceStopWG := &sync.WaitGroup{}
	runErrC := make(chan error, 1)

	serviceStopWG.Add(1)
	if appConfig.Transport.Mode == config.TransportModeWebhook {
		webhookServer := bot.NewWebhookServer(client, botService,
			appConfig.Transport.Webhook.PublicURL, appConfig.Transport.Webhook.ListenPort)
		go func() {
			if err := webhookServer.Run(serviceStopCtx, serviceStopWG); err != nil {
				runErrC <- err
			}
		}()
	} else {
		go botService.Run(serviceStopCtx, serviceStopWG)
	}

	applog.WithComponent("main").Info("두목봇 가동 완료")

	// 종료 시그널 대기
	termC := make(chan os.Signal, 1)
	signal.Notify(termC, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-runErrC:
		cancel()
		serviceStopWG.Wait()
		return err

	case <-termC:
		applog.WithComponent("main").Info("종료 시그널 수신됨")
		cancel()             // 서비스들에게 종료 신호 전파
		serviceStopWG.Wait() // 모든 서비스가 정리될 때까지 대기
		return nil
	}
}
