package httpx

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"backoffice/auth"
	"backoffice/logging"
	"backoffice/metrics"
)

// IRouteRegistrar 可挂载到路由树上的一组路由，按 priority 升序、同级按名称挂载
type IRouteRegistrar interface {
	RegisterRoutes(r chi.Router)
	GetName() string
	GetPriority() int
}

// HealthCheck 健康检查，返回错误时 /health 响应 503
type HealthCheck func(ctx context.Context) error

// RouterConfig 路由依赖
type RouterConfig struct {
	Logger   logging.Logger
	Metrics  *metrics.Metrics
	Resolver *auth.Resolver

	// AuthRequired 为 false 时允许匿名访问受保护路由，匿名变更不产生审计
	AuthRequired bool
	// TrustProxy 为 true 时客户端地址取 X-Forwarded-For，否则取连接地址
	TrustProxy bool

	// Public 无需令牌的路由
	Public []IRouteRegistrar
	// Protected 经过认证中间件的路由
	Protected []IRouteRegistrar

	Health HealthCheck
}

// NewRouter 组装中间件与全部路由
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.ComponentLogger("http")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(cfg.Logger))
	r.Use(instrument(cfg.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth(cfg.Health))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	for _, reg := range sorted(cfg.Public) {
		reg.RegisterRoutes(r)
	}
	r.Group(func(r chi.Router) {
		r.Use(authenticate(cfg.Resolver, cfg.AuthRequired, cfg.TrustProxy))
		for _, reg := range sorted(cfg.Protected) {
			reg.RegisterRoutes(r)
		}
	})
	return r
}

func sorted(registrars []IRouteRegistrar) []IRouteRegistrar {
	out := append([]IRouteRegistrar(nil), registrars...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].GetPriority(), out[j].GetPriority()
		if pi == pj {
			return out[i].GetName() < out[j].GetName()
		}
		return pi < pj
	})
	return out
}

func handleHealth(check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok", "time": time.Now().UTC()}
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				body["status"] = "unavailable"
				body["error"] = err.Error()
				writeJSON(w, http.StatusServiceUnavailable, body)
				return
			}
		}
		writeJSON(w, http.StatusOK, body)
	}
}
