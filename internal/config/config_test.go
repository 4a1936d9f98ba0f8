package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw1"

// writeConfigFile 테스트용 설정 파일을 임시 디렉토리에 생성합니다.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultFilename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWithFile_Minimal(t *testing.T) {
	path := writeConfigFile(t, `{
		"telegram": {"bot_token": "`+testBotToken+`"}
	}`)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, testBotToken, cfg.Telegram.BotToken)

	// 생략된 값은 기본값으로 채워진다.
	assert.Equal(t, TransportModePolling, cfg.Transport.Mode)
	assert.Equal(t, DefaultStoragePath, cfg.Storage.Path)
	assert.Equal(t, DefaultCommandConcurrency, cfg.Router.CommandConcurrency)
	assert.Equal(t, 2*time.Second, cfg.Router.DedupWindowDuration())
}

func TestLoadWithFile_FullConfig(t *testing.T) {
	path := writeConfigFile(t, `{
		"debug": true,
		"telegram": {
			"bot_token": "`+testBotToken+`",
			"allowed_chat_ids": [100, 200]
		},
		"router": {
			"dedup_window": "3s",
			"command_concurrency": 16,
			"user_rate_limit": 5
		},
		"features": {
			"todo": {"enabled": true},
			"weather": {
				"enabled": true,
				"api_url": "https://wttr.in",
				"default_city": "Seoul"
			}
		}
	}`)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, []int64{100, 200}, cfg.Telegram.AllowedChatIDs)
	assert.Equal(t, 3*time.Second, cfg.Router.DedupWindowDuration())
	assert.Equal(t, 16, cfg.Router.CommandConcurrency)
	assert.True(t, cfg.Features.Weather.Enabled)
	assert.Equal(t, "Seoul", cfg.Features.Weather.DefaultCity)
}

func TestLoadWithFile_EnvOverride(t *testing.T) {
	path := writeConfigFile(t, `{
		"telegram": {"bot_token": "`+testBotToken+`"}
	}`)

	// 환경 변수가 파일 설정보다 우선한다.
	t.Setenv("DUMOK_ROUTER__DEDUP_WINDOW", "4s")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 4*time.Second, cfg.Router.DedupWindowDuration())
}

func TestLoadWithFile_MissingFile(t *testing.T) {
	_, err := LoadWithFile(filepath.Join(t.TempDir(), "no-such-file.json"))
	assert.Error(t, err)
}

func TestLoadWithFile_MissingBotToken(t *testing.T) {
	path := writeConfigFile(t, `{"telegram": {"bot_token": ""}}`)

	_, err := LoadWithFile(path)
	assert.Error(t, err, "봇 토큰이 없으면 로드가 실패해야 함")
}

func TestLoadWithFile_InvalidBotTokenFormat(t *testing.T) {
	path := writeConfigFile(t, `{"telegram": {"bot_token": "not-a-token"}}`)

	_, err := LoadWithFile(path)
	assert.Error(t, err)
}

func TestLoadWithFile_UnknownFieldRejected(t *testing.T) {
	path := writeConfigFile(t, `{
		"telegram": {"bot_token": "`+testBotToken+`"},
		"no_such_section": {"foo": 1}
	}`)

	_, err := LoadWithFile(path)
	assert.Error(t, err, "구조체에 없는 설정 필드는 오타 방지를 위해 거부되어야 함")
}

func TestLoadWithFile_InvalidDedupWindow(t *testing.T) {
	path := writeConfigFile(t, `{
		"telegram": {"bot_token": "`+testBotToken+`"},
		"router": {"dedup_window": "abc"}
	}`)

	_, err := LoadWithFile(path)
	assert.Error(t, err)
}

func TestLoadWithFile_WebhookValidation(t *testing.T) {
	// 웹훅 모드는 HTTPS 공개 URL과 유효한 포트가 필수다.
	path := writeConfigFile(t, `{
		"telegram": {"bot_token": "`+testBotToken+`"},
		"transport": {
			"mode": "webhook",
			"webhook": {"listen_port": 8443, "public_url": "http://insecure.example.com"}
		}
	}`)

	_, err := LoadWithFile(path)
	assert.Error(t, err, "웹훅 공개 URL은 https이어야 함")
}

func TestLoadWithFile_InvalidTransportMode(t *testing.T) {
	path := writeConfigFile(t, `{
		"telegram": {"bot_token": "`+testBotToken+`"},
		"transport": {"mode": "carrier-pigeon"}
	}`)

	_, err := LoadWithFile(path)
	assert.Error(t, err)
}

func TestLoadWithFile_EnabledWeatherRequiresURL(t *testing.T) {
	path := writeConfigFile(t, `{
		"telegram": {"bot_token": "`+testBotToken+`"},
		"features": {"weather": {"enabled": true}}
	}`)

	_, err := LoadWithFile(path)
	assert.Error(t, err, "활성화된 날씨 기능은 API URL이 필수임")
}
