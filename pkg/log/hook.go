package log

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// hook 로그 Entry를 메인 파일, 중요 로그 파일, 콘솔로 분배하는 logrus Hook입니다.
//
// 라우팅 규칙:
//   - 모든 레벨 → mainWriter
//   - ERROR 이상 → criticalWriter (설정된 경우)
//   - 모든 레벨 → consoleWriter (설정된 경우)
type hook struct {
	mu sync.Mutex

	mainWriter     io.Writer
	criticalWriter io.Writer
	consoleWriter  io.Writer

	formatter logrus.Formatter

	closed bool
}

var _ logrus.Hook = (*hook)(nil)

func (h *hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *hook) Fire(entry *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Close() 이후 도착한 로그는 버립니다. 닫힌 파일 핸들에 쓰는 것을 방지합니다.
	if h.closed {
		return nil
	}

	formatted, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	if h.mainWriter != nil {
		if _, err := h.mainWriter.Write(formatted); err != nil {
			return err
		}
	}

	if h.criticalWriter != nil && entry.Level <= logrus.ErrorLevel {
		if _, err := h.criticalWriter.Write(formatted); err != nil {
			return err
		}
	}

	if h.consoleWriter != nil {
		if _, err := h.consoleWriter.Write(formatted); err != nil {
			return err
		}
	}

	return nil
}

// shutdown 이후의 Fire 호출을 무력화합니다.
func (h *hook) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

// closer Setup()이 생성한 모든 로깅 리소스를 해제하는 io.Closer 구현체입니다.
type closer struct {
	once    sync.Once
	closers []io.Closer
	hook    *hook
}

func (c *closer) Close() error {
	var firstErr error
	c.once.Do(func() {
		// 파일 핸들을 닫기 전에 Hook의 추가 기록을 차단합니다.
		if c.hook != nil {
			c.hook.shutdown()
		}
		for _, cl := range c.closers {
			if err := cl.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
