package bot

import (
	"context"
	"fmt"
	"sort"

	"github.com/iancoleman/strcase"

	apperrors "github.com/dumoklab/dumok-bot/internal/pkg/errors"
	applog "github.com/dumoklab/dumok-bot/pkg/log"
)

// componentRegistry 핸들러 레지스트리의 로깅용 컴포넌트 이름
const componentRegistry = "bot.registry"

// Registration 기능 핸들러 하나의 등록 정보입니다.
//
// 부트스트랩 시점에 정적 목록으로 생성되며, 런타임에는 변경되지 않습니다.
type Registration struct {
	// Handler 기능 핸들러 인스턴스입니다.
	Handler Handler

	// Priority 메시지 라우팅 시 순회 순서입니다. 낮을수록 먼저 기회를 얻습니다.
	Priority int

	// Required true인 핸들러의 초기화 실패는 부트스트랩 전체를 중단시킵니다.
	// false인 핸들러는 경고 로그와 함께 레지스트리에서 제외될 뿐입니다.
	Required bool

	// Enabled false이면 등록 자체를 건너뜁니다. (설정 파일의 기능 토글)
	Enabled bool
}

// Registry 모듈 키로 기능 핸들러를 조회하는 정적 레지스트리입니다.
//
// 부트스트랩에서 한 번 생성된 후 읽기 전용으로 사용되므로 별도의 잠금 없이
// 여러 고루틴에서 동시에 조회할 수 있습니다.
type Registry struct {
	byKey   map[string]Handler
	ordered []Handler // Priority 오름차순
}

// NewRegistry 등록 목록으로부터 레지스트리를 구성하고 각 핸들러를 초기화합니다.
//
// 초기화 정책:
//   - Enabled=false → 건너뜀
//   - Initialize() 실패 + Required=true → 에러 반환 (부트스트랩 중단)
//   - Initialize() 실패 + Required=false → 경고 로그 후 해당 핸들러만 제외
//
// 모듈 키는 snake_case로 정규화되며, 중복 키는 설정 오류로 간주하여 에러를 반환합니다.
func NewRegistry(ctx context.Context, registrations []Registration) (*Registry, error) {
	r := &Registry{
		byKey: make(map[string]Handler, len(registrations)),
	}

	// Priority 오름차순으로 정렬하여 메시지 라우팅 순서를 확정합니다.
	sorted := make([]Registration, len(registrations))
	copy(sorted, registrations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	for _, reg := range sorted {
		if !reg.Enabled {
			applog.WithComponentAndFields(componentRegistry, applog.Fields{
				"module_key": reg.Handler.ModuleKey(),
			}).Debug("비활성화된 기능: 레지스트리 등록을 건너뜁니다")
			continue
		}

		key := strcase.ToSnake(reg.Handler.ModuleKey())
		if key == "" {
			return nil, apperrors.New(apperrors.Internal, "빈 모듈 키를 가진 핸들러는 등록할 수 없습니다")
		}
		if key == mainModuleAlias {
			return nil, apperrors.Newf(apperrors.Conflict, "모듈 키 '%s'는 시스템 핸들러의 별칭으로 예약되어 있습니다", mainModuleAlias)
		}
		if _, exists := r.byKey[key]; exists {
			return nil, apperrors.Newf(apperrors.Conflict, "중복된 모듈 키가 존재합니다: '%s'", key)
		}

		// 선택적 초기화 훅 실행
		if initializer, ok := reg.Handler.(Initializer); ok {
			if err := initializer.Initialize(ctx); err != nil {
				if reg.Required {
					return nil, apperrors.Wrap(err, apperrors.System, fmt.Sprintf("필수 기능('%s')의 초기화에 실패했습니다", key))
				}

				applog.WithComponentAndFields(componentRegistry, applog.Fields{
					"module_key": key,
					"error":      err,
				}).Warn("선택 기능 초기화 실패: 해당 기능은 메뉴에서 제외됩니다")
				continue
			}
		}

		r.byKey[key] = reg.Handler
		r.ordered = append(r.ordered, reg.Handler)
	}

	if _, ok := r.byKey[ModuleKeySystem]; !ok {
		return nil, apperrors.New(apperrors.Internal, "시스템 핸들러가 등록되지 않았습니다")
	}

	applog.WithComponentAndFields(componentRegistry, applog.Fields{
		"handler_count": len(r.ordered),
	}).Info("기능 핸들러 레지스트리 구성 완료")

	return r, nil
}

// Resolve 모듈 키로 핸들러를 조회합니다.
//
// 별칭 규칙: "main"은 시스템 핸들러("system")로 재작성됩니다.
func (r *Registry) Resolve(moduleKey string) (Handler, bool) {
	if moduleKey == mainModuleAlias {
		moduleKey = ModuleKeySystem
	}
	h, ok := r.byKey[moduleKey]
	return h, ok
}

// Ordered Priority 오름차순으로 정렬된 전체 핸들러 목록을 반환합니다.
func (r *Registry) Ordered() []Handler {
	return r.ordered
}

// MenuItems 메인 메뉴에 표시할 항목 목록을 Priority 순서로 반환합니다.
// 시스템 핸들러 자신은 메뉴 항목에서 제외됩니다.
func (r *Registry) MenuItems() []MenuItem {
	items := make([]MenuItem, 0, len(r.ordered))
	for _, h := range r.ordered {
		if h.ModuleKey() == ModuleKeySystem {
			continue
		}
		items = append(items, h.MenuItem())
	}
	return items
}

// Cleanup 등록된 모든 핸들러의 정리 훅을 역순으로 호출합니다.
func (r *Registry) Cleanup() {
	for i := len(r.ordered) - 1; i >= 0; i-- {
		if cleaner, ok := r.ordered[i].(Cleaner); ok {
			cleaner.Cleanup()
		}
	}
}
