package config

import (
	"fmt"
	"net/url"
	"time"

	apperrors "github.com/dumoklab/dumok-bot/internal/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// 전송(Transport) 모드 상수
const (
	// TransportModePolling 텔레그램 서버에 Long Polling 방식으로 업데이트를 요청합니다.
	TransportModePolling = "polling"

	// TransportModeWebhook 텔레그램 서버가 지정된 URL로 업데이트를 전송(Push)합니다.
	TransportModeWebhook = "webhook"
)

// AppConfig 애플리케이션의 모든 설정을 관장하는 최상위 루트 구조체
type AppConfig struct {
	Debug     bool            `json:"debug"`
	Telegram  TelegramConfig  `json:"telegram"`
	Transport TransportConfig `json:"transport"`
	Storage   StorageConfig   `json:"storage"`
	Router    RouterConfig    `json:"router"`
	Features  FeaturesConfig  `json:"features"`
}

// validate 설정 파일 로드 직후, 각 설정 항목의 정합성과 필수 값의 유효성을 검증합니다.
func (c *AppConfig) validate(v *validator.Validate) error {
	if err := c.Telegram.validate(v); err != nil {
		return err
	}
	if err := c.Transport.validate(v); err != nil {
		return err
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	if err := c.Router.validate(); err != nil {
		return err
	}
	if err := c.Features.validate(); err != nil {
		return err
	}
	return nil
}

// TelegramConfig 텔레그램 봇 토큰 및 접근 제어 정보를 담는 설정 구조체
type TelegramConfig struct {
	// BotToken BotFather가 발급한 봇 토큰입니다. (형식: "123456789:AA...")
	BotToken string `json:"bot_token" validate:"required,telegram_bot_token"`

	// AllowedChatIDs 봇 사용을 허용할 채팅방 ID 목록입니다.
	// 비어있으면 모든 채팅방의 메시지를 처리합니다. (개인용 봇에서는 설정을 권장)
	AllowedChatIDs []int64 `json:"allowed_chat_ids"`
}

func (c *TelegramConfig) validate(v *validator.Validate) error {
	if err := v.Struct(c); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldErr := range validationErrors {
				if fieldErr.StructField() == "BotToken" {
					switch fieldErr.Tag() {
					case "required":
						return apperrors.New(apperrors.InvalidInput, "텔레그램 봇 토큰(bot_token)이 설정되지 않았습니다")
					default:
						return apperrors.New(apperrors.InvalidInput, "텔레그램 봇 토큰(bot_token)의 형식이 올바르지 않습니다 (형식: '숫자:영숫자토큰')")
					}
				}
			}
		}
		return apperrors.Wrap(err, apperrors.InvalidInput, "텔레그램 설정 검증 중 알 수 없는 오류가 발생했습니다")
	}
	return nil
}

// TransportConfig 텔레그램 업데이트 수신 방식을 정의하는 설정 구조체
type TransportConfig struct {
	// Mode 업데이트 수신 방식입니다. ("polling" 또는 "webhook")
	Mode string `json:"mode" validate:"required,oneof=polling webhook"`

	Webhook WebhookConfig `json:"webhook"`
}

func (c *TransportConfig) validate(v *validator.Validate) error {
	if err := v.Struct(c); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldErr := range validationErrors {
				if fieldErr.StructField() == "Mode" {
					return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("전송 모드(transport.mode)는 '%s' 또는 '%s'이어야 합니다: '%v'", TransportModePolling, TransportModeWebhook, fieldErr.Value()))
				}
			}
		}
		return apperrors.Wrap(err, apperrors.InvalidInput, "전송 설정 검증 중 알 수 없는 오류가 발생했습니다")
	}

	// Webhook 모드인 경우에만 웹훅 세부 설정을 검증합니다.
	if c.Mode == TransportModeWebhook {
		return c.Webhook.validate()
	}
	return nil
}

// WebhookConfig 웹훅 수신 서버의 포트 및 공개 URL 설정을 정의하는 구조체
type WebhookConfig struct {
	// ListenPort 웹훅 수신 HTTP 서버의 리슨 포트입니다.
	ListenPort int `json:"listen_port"`

	// PublicURL 텔레그램 서버에 등록할 외부 공개 URL입니다. (HTTPS 필수)
	PublicURL string `json:"public_url"`
}

func (c *WebhookConfig) validate() error {
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return apperrors.New(apperrors.InvalidInput, "웹훅 서버 포트(listen_port)는 1에서 65535 사이의 값이어야 합니다")
	}

	u, err := url.Parse(c.PublicURL)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("웹훅 공개 URL(public_url)은 https 형식이어야 합니다: '%s'", c.PublicURL))
	}

	return nil
}

// StorageConfig 기능별 데이터가 저장되는 SQLite 데이터베이스 설정 구조체
type StorageConfig struct {
	// Path SQLite 데이터 파일의 경로입니다.
	Path string `json:"path"`
}

func (c *StorageConfig) validate() error {
	if c.Path == "" {
		return apperrors.New(apperrors.InvalidInput, "데이터 저장 경로(storage.path)가 설정되지 않았습니다")
	}
	return nil
}

// RouterConfig 콜백/메시지 라우터의 동작 정책을 정의하는 설정 구조체
type RouterConfig struct {
	// DedupWindow 동일한 콜백의 재처리를 억제하는 시간 윈도우입니다. (예: "2s")
	DedupWindow string `json:"dedup_window"`

	// CommandConcurrency 동시에 처리할 수 있는 콜백/명령어 고루틴 수입니다.
	CommandConcurrency int `json:"command_concurrency"`

	// UserRateLimit 사용자당 초당 허용 액션 수입니다. (Rate Limit 미들웨어)
	UserRateLimit float64 `json:"user_rate_limit"`
}

func (c *RouterConfig) validate() error {
	if _, err := time.ParseDuration(c.DedupWindow); err != nil {
		return apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("중복 제거 윈도우(dedup_window) 설정이 올바르지 않습니다: '%s' (예: 2s, 500ms)", c.DedupWindow))
	}
	if c.CommandConcurrency < 1 {
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("동시 처리 수(command_concurrency)는 1 이상이어야 합니다: %d", c.CommandConcurrency))
	}
	if c.UserRateLimit <= 0 {
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("사용자 속도 제한(user_rate_limit)은 0보다 커야 합니다: %v", c.UserRateLimit))
	}
	return nil
}

// DedupWindowDuration 파싱된 중복 제거 윈도우 값을 반환합니다.
// validate()를 통과한 설정에서만 호출해야 합니다.
func (c *RouterConfig) DedupWindowDuration() time.Duration {
	d, err := time.ParseDuration(c.DedupWindow)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// FeaturesConfig 개별 기능(Feature Handler)의 활성화 여부와 기능별 설정을 정의하는 구조체
type FeaturesConfig struct {
	Todo     FeatureToggle  `json:"todo"`
	Leave    FeatureToggle  `json:"leave"`
	Worktime FeatureToggle  `json:"worktime"`
	Timer    FeatureToggle  `json:"timer"`
	Reminder FeatureToggle  `json:"reminder"`
	Weather  WeatherConfig  `json:"weather"`
	Fortune  FortuneConfig  `json:"fortune"`
	TTS      TTSConfig      `json:"tts"`
}

func (c *FeaturesConfig) validate() error {
	if c.Weather.Enabled {
		if err := c.Weather.validate(); err != nil {
			return err
		}
	}
	if c.Fortune.Enabled {
		if err := c.Fortune.validate(); err != nil {
			return err
		}
	}
	if c.TTS.Enabled {
		if err := c.TTS.validate(); err != nil {
			return err
		}
	}
	return nil
}

// FeatureToggle 단순 활성화/비활성화만 필요한 기능의 공통 설정 구조체
type FeatureToggle struct {
	Enabled bool `json:"enabled"`
}

// WeatherConfig 날씨 기능의 외부 API 설정 구조체
type WeatherConfig struct {
	Enabled bool `json:"enabled"`

	// APIURL 날씨 예보 JSON API의 기본 URL입니다.
	APIURL string `json:"api_url"`

	// DefaultCity 도시를 지정하지 않았을 때 조회할 기본 도시명입니다.
	DefaultCity string `json:"default_city"`
}

func (c *WeatherConfig) validate() error {
	if err := checkHTTPURL(c.APIURL); err != nil {
		return apperrors.Wrap(err, apperrors.InvalidInput, "날씨 API URL(features.weather.api_url) 설정이 올바르지 않습니다")
	}
	if c.DefaultCity == "" {
		return apperrors.New(apperrors.InvalidInput, "날씨 기본 도시(features.weather.default_city)가 설정되지 않았습니다")
	}
	return nil
}

// FortuneConfig 운세 기능의 스크래핑 대상 설정 구조체
type FortuneConfig struct {
	Enabled bool `json:"enabled"`

	// SourceURL 운세 정보를 스크래핑할 웹 페이지 URL입니다.
	SourceURL string `json:"source_url"`
}

func (c *FortuneConfig) validate() error {
	if err := checkHTTPURL(c.SourceURL); err != nil {
		return apperrors.Wrap(err, apperrors.InvalidInput, "운세 소스 URL(features.fortune.source_url) 설정이 올바르지 않습니다")
	}
	return nil
}

// TTSConfig 음성 합성(TTS) 기능의 외부 API 설정 구조체
type TTSConfig struct {
	Enabled bool `json:"enabled"`

	// APIURL 텍스트를 OGG 음성으로 변환하는 HTTP API의 URL입니다.
	APIURL string `json:"api_url"`
}

func (c *TTSConfig) validate() error {
	if err := checkHTTPURL(c.APIURL); err != nil {
		return apperrors.Wrap(err, apperrors.InvalidInput, "TTS API URL(features.tts.api_url) 설정이 올바르지 않습니다")
	}
	return nil
}

// checkHTTPURL http(s) URL 형식 여부를 검사합니다.
func checkHTTPURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("http(s) URL 형식이 아닙니다: '%s'", rawURL)
	}
	return nil
}
