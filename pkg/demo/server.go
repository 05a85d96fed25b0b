package demo

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tesserabio/tessera-cli/pkg/cli"
	"github.com/tesserabio/tessera-cli/pkg/client"
	"github.com/tesserabio/tessera-cli/pkg/metrics"
	"github.com/tesserabio/tessera-cli/pkg/version"
)

const RequestIDHeader = "X-Request-ID"

type Server struct {
	gin  *gin.Engine
	cfg  *cli.Config
	auth *AuthHandler
	log  *zap.SugaredLogger
}

func NewServer(log *zap.Logger, cfg *cli.Config, auth *AuthHandler) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		requestID(),
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		countRequests(),
	)

	if cfg.Debug {
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins: []string{"http://localhost:5173", "127.0.0.1:8080"},
				AllowMethods: []string{"GET", "PUT", "PATCH", "POST", "OPTIONS"},
				AllowHeaders: []string{"Origin", "Authorization", "Content-Type"},
				MaxAge:       12 * time.Hour,
			}),
		)
	}

	if cfg.StaticDir != "" {
		engine.Use(static.Serve("/", static.LocalFile(cfg.StaticDir, true)))
	}

	s := &Server{
		gin:  engine,
		cfg:  cfg,
		auth: auth,
		log:  log.Sugar(),
	}

	engine.GET("healthz", s.getHealth)
	engine.GET("metrics", gin.WrapH(metrics.MetricsHandler()))
	engine.GET("api/config", s.getConfig)

	api := engine.Group("api", auth.Middleware())
	api.GET("me", s.getMe)
	api.GET("applications", s.listApplications)
	api.GET("applications/:id", s.getApplication)
	api.GET("runs", s.listRuns)
	api.GET("runs/:id", s.getRun)
	api.POST("runs", s.createRun)
	api.POST("runs/:id/cancel", s.cancelRun)

	return s
}

// Handler exposes the underlying engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.gin,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// requestID tags every request with a correlation ID, reusing the caller's
// when present.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

func countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

type FrontendConfig struct {
	OIDCAuthority string `json:"oidcAuthority"`
	OIDCClientID  string `json:"oidcClientID"`
	APIURL        string `json:"apiURL"`
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, FrontendConfig{
		OIDCAuthority: s.cfg.Authority,
		OIDCClientID:  s.cfg.ClientID,
		APIURL:        s.cfg.APIURL,
	})
}

func (s *Server) getMe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sub":      c.GetString("user_id"),
		"email":    c.GetString("email"),
		"username": c.GetString("username"),
		"issuer":   c.GetString("issuer"),
	})
}

// platformClient builds a platform API client that forwards the caller's
// bearer token, so the platform enforces the caller's own permissions.
func (s *Server) platformClient(c *gin.Context) (*client.Client, bool) {
	bearer := c.GetString("bearer")
	opts := []client.Option{
		client.WithServer(s.cfg.APIURL),
		client.WithToken(bearer),
		client.WithUserAgent("tessera-demo/" + version.Version),
	}
	if s.cfg.CAFile != "" {
		opts = append(opts, client.WithTLSConfig(s.cfg.CAFile, false))
	}
	pc, err := client.New(opts...)
	if err != nil {
		s.log.Errorw("failed to build platform client", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "platform API is not configured"})
		c.Abort()
		return nil, false
	}
	return pc, true
}

// writeProxyError maps platform API failures onto the demo response,
// preserving the upstream status where one exists.
func (s *Server) writeProxyError(c *gin.Context, resource string, err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		metrics.ProxyErrors.WithLabelValues(resource, strconv.Itoa(apiErr.Status)).Inc()
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Message, "code": apiErr.Code})
		return
	}
	metrics.ProxyErrors.WithLabelValues(resource, "unreachable").Inc()
	s.log.Errorw("platform API request failed", "resource", resource, "error", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": "platform API request failed"})
}

func (s *Server) listApplications(c *gin.Context) {
	pc, ok := s.platformClient(c)
	if !ok {
		return
	}
	metrics.ProxyRequests.WithLabelValues("applications").Inc()
	apps, err := pc.Applications().List(c.Request.Context(), client.ApplicationListOptions{
		Name:     c.Query("name"),
		Modality: c.Query("modality"),
	})
	if err != nil {
		s.writeProxyError(c, "applications", err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (s *Server) getApplication(c *gin.Context) {
	pc, ok := s.platformClient(c)
	if !ok {
		return
	}
	metrics.ProxyRequests.WithLabelValues("applications").Inc()
	app, err := pc.Applications().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeProxyError(c, "applications", err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *Server) listRuns(c *gin.Context) {
	pc, ok := s.platformClient(c)
	if !ok {
		return
	}
	metrics.ProxyRequests.WithLabelValues("runs").Inc()
	runs, err := pc.Runs().List(c.Request.Context(), client.RunListOptions{
		ApplicationID: c.Query("app"),
		State:         c.QueryArray("state"),
	})
	if err != nil {
		s.writeProxyError(c, "runs", err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) getRun(c *gin.Context) {
	pc, ok := s.platformClient(c)
	if !ok {
		return
	}
	metrics.ProxyRequests.WithLabelValues("runs").Inc()
	run, err := pc.Runs().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeProxyError(c, "runs", err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) createRun(c *gin.Context) {
	var req client.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pc, ok := s.platformClient(c)
	if !ok {
		return
	}
	metrics.ProxyRequests.WithLabelValues("runs").Inc()
	run, err := pc.Runs().Create(c.Request.Context(), req)
	if err != nil {
		s.writeProxyError(c, "runs", err)
		return
	}
	c.JSON(http.StatusCreated, run)
}

func (s *Server) cancelRun(c *gin.Context) {
	pc, ok := s.platformClient(c)
	if !ok {
		return
	}
	metrics.ProxyRequests.WithLabelValues("runs").Inc()
	run, err := pc.Runs().Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeProxyError(c, "runs", err)
		return
	}
	c.JSON(http.StatusOK, run)
}
