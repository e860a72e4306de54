// Package app 按配置组装存储、审计传输、服务与 HTTP 路由，并管理运行生命周期
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"backoffice/audit"
	"backoffice/auth"
	"backoffice/config"
	"backoffice/data/repo"
	"backoffice/httpx"
	"backoffice/logging"
	"backoffice/messaging"
	"backoffice/metrics"
	"backoffice/model"
	"backoffice/resource"
	"backoffice/retry"
	"backoffice/service"
)

// State 生命周期状态
type State int32

const (
	StatePending State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// App 组装完成的服务
type App struct {
	cfg       *config.Config
	logger    logging.Logger
	metrics   *metrics.Metrics
	backend   *backend
	transport messaging.Transport
	handler   http.Handler
	state     atomic.Int32
}

// New 按配置组装并启动审计传输；失败时已打开的存储会被关闭
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	logger := logging.New(os.Stdout, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	logging.SetLogger(logger)

	m := metrics.New()
	metrics.SetGlobal(m)

	b, err := openBackend(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = b.Close(context.Background())
		}
	}()
	startLog := logging.ComponentLogger("app")
	if err = retry.Do(ctx, startupRetry(ctx, startLog, "store"), func(ctx context.Context, _ int) error {
		return b.Ping(ctx)
	}); err != nil {
		return nil, fmt.Errorf("ping %s store: %w", b.driver, err)
	}

	transport, err := openTransport(cfg.Audit, logging.ComponentLogger("audit.transport"))
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logging.ComponentLogger("app"), metrics: m, backend: b, transport: transport}
	if a.handler, err = a.wire(ctx); err != nil {
		return nil, err
	}
	if err = retry.Do(ctx, startupRetry(ctx, startLog, "audit transport"), func(ctx context.Context, _ int) error {
		return transport.Start(ctx)
	}); err != nil {
		return nil, fmt.Errorf("start audit transport: %w", err)
	}
	return a, nil
}

// startupRetry 启动阶段连接外部依赖的重试策略
func startupRetry(ctx context.Context, logger logging.Logger, target string) retry.Config {
	cfg := retry.DefaultConfig()
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Warn(ctx, "startup dependency unavailable, retrying",
			logging.String("target", target),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err))
	}
	return cfg
}

func (a *App) wire(ctx context.Context) (http.Handler, error) {
	auditColl, err := a.backend.open(ctx, audit.CollectionName)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", audit.CollectionName, err)
	}
	logs := audit.NewStore(auditColl)
	bus := newAuditBus(a.transport)
	writer := audit.NewWriter(logs,
		audit.WithPublisher(bus),
		audit.WithLogger(logging.ComponentLogger("audit")),
		audit.WithMetrics(a.metrics),
	)
	if err := writer.Subscribe(bus); err != nil {
		return nil, fmt.Errorf("subscribe audit writer: %w", err)
	}

	notes, err := newService[model.Note](ctx, a.backend, CollNotes, audit.EntityNote, writer)
	if err != nil {
		return nil, err
	}
	projects, err := newService[model.Project](ctx, a.backend, CollProjects, audit.EntityProject, writer)
	if err != nil {
		return nil, err
	}
	charges, err := newService[model.ClientCharge](ctx, a.backend, CollClientCharges, audit.EntityClientCharge, writer)
	if err != nil {
		return nil, err
	}
	payments, err := newService[model.PartnerPayment](ctx, a.backend, CollPartnerPayments, audit.EntityPartnerPayment, writer)
	if err != nil {
		return nil, err
	}
	partners, err := newService[model.Partner](ctx, a.backend, CollPartners, audit.EntityPartner, writer)
	if err != nil {
		return nil, err
	}
	userSvc, err := newService[model.User](ctx, a.backend, CollUsers, audit.EntityUser, writer)
	if err != nil {
		return nil, err
	}

	users := service.NewUserService(userSvc)
	projectSvc := service.NewProjectService(projects, charges, payments)
	resolver := auth.NewResolver(
		auth.NewTokenIssuer(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL),
		users,
		a.cfg.Auth.UserCacheSize,
		a.cfg.Auth.UserCacheTTL,
		auth.WithMetrics(a.metrics),
	)

	return httpx.NewRouter(httpx.RouterConfig{
		Logger:       logging.ComponentLogger("http"),
		Metrics:      a.metrics,
		Resolver:     resolver,
		AuthRequired: a.cfg.Auth.Required,
		TrustProxy:   a.cfg.Server.TrustProxy,
		Public:       []httpx.IRouteRegistrar{httpx.NewAuthRoutes(users, resolver)},
		Protected: []httpx.IRouteRegistrar{
			httpx.NoteResource(notes),
			httpx.ProjectResource(projectSvc),
			httpx.ClientChargeResource(charges),
			httpx.PartnerPaymentResource(payments),
			httpx.PartnerResource(partners),
			httpx.UserResource(users, resolver),
			httpx.NewLogRoutes(audit.NewService(logs)),
		},
		Health: a.health,
	}), nil
}

// health 存储可达且审计传输在运行
func (a *App) health(ctx context.Context) error {
	if !a.transport.Stats().Running {
		return stderrors.New("audit transport is not running")
	}
	return a.backend.Ping(ctx)
}

func newService[T any](ctx context.Context, b *backend, name string, entityType audit.EntityType, w *audit.Writer) (*resource.Service[T], error) {
	coll, err := b.open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return resource.New(repo.New[T](coll), entityType, w), nil
}

// Handler HTTP 入口
func (a *App) Handler() http.Handler { return a.handler }

// State 当前生命周期状态
func (a *App) State() State { return State(a.state.Load()) }

// Run 启动 HTTP 服务，直到 ctx 取消后优雅关闭
func (a *App) Run(ctx context.Context) error {
	if !a.state.CompareAndSwap(int32(StatePending), int32(StateRunning)) {
		return fmt.Errorf("app already %s", a.State())
	}

	srv := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      a.handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "http server listening",
			logging.String("addr", srv.Addr),
			logging.String("store", a.backend.driver),
			logging.String("audit_transport", a.cfg.Audit.Transport))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}
	return stderrors.Join(runErr, a.shutdown(srv))
}

func (a *App) shutdown(srv *http.Server) error {
	a.state.Store(int32(StateStopping))
	defer a.state.Store(int32(StateStopped))

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	a.logger.Info(ctx, "shutting down", logging.Duration("timeout", a.cfg.Server.ShutdownTimeout))

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	// 先排空审计队列再关闭存储
	if err := a.transport.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close audit transport: %w", err))
	}
	if err := a.backend.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return stderrors.Join(errs...)
}

// Close 释放从未运行过的实例；Run 返回时已自行释放
func (a *App) Close(ctx context.Context) error {
	if !a.state.CompareAndSwap(int32(StatePending), int32(StateStopped)) {
		return nil
	}
	return stderrors.Join(a.transport.Close(), a.backend.Close(ctx))
}

