// Package storage 봇 기능들이 공유하는 SQLite 데이터베이스 연결을 관리합니다.
//
// 테이블 스키마는 각 기능 핸들러가 자신의 Initialize()에서 생성합니다.
// 이 패키지는 연결 수립과 공통 PRAGMA 설정만 담당합니다.
package storage

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/dumoklab/dumok-bot/internal/pkg/errors"
	applog "github.com/dumoklab/dumok-bot/pkg/log"
)

// component 스토리지의 로깅용 컴포넌트 이름
const component = "storage"

// Open 지정된 경로의 SQLite 데이터베이스를 엽니다.
//
// 파일이 위치할 디렉토리가 없으면 먼저 생성합니다. WAL 모드와 busy_timeout을
// 활성화하여 여러 고루틴의 동시 접근에서도 안정적으로 동작하도록 합니다.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "데이터베이스 디렉토리 생성에 실패했습니다")
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "데이터베이스 열기에 실패했습니다")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "데이터베이스 연결 확인에 실패했습니다")
	}

	// SQLite는 단일 쓰기 잠금 모델이므로 연결 수를 제한하여 잠금 경합을 줄입니다.
	db.SetMaxOpenConns(1)

	applog.WithComponentAndFields(component, applog.Fields{
		"path": path,
	}).Info("데이터베이스 연결 완료")

	return db, nil
}
