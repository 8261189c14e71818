package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/enmanuelbasulto/fop2-clone/internal/ami"
	"github.com/enmanuelbasulto/fop2-clone/internal/apierrors"
	"github.com/enmanuelbasulto/fop2-clone/internal/auth"
	"github.com/enmanuelbasulto/fop2-clone/internal/middleware"
	"github.com/enmanuelbasulto/fop2-clone/internal/models"
	"github.com/enmanuelbasulto/fop2-clone/internal/sessions"
	"github.com/enmanuelbasulto/fop2-clone/internal/state"
	"github.com/enmanuelbasulto/fop2-clone/internal/stats"
)

// loginRateLimit caps login attempts per client IP per hour.
const loginRateLimit = 60

// API serves the HTTP login surface and the statistics endpoints.
type API struct {
	provider   auth.Provider
	jwt        *middleware.JWTManager
	store      *state.Store
	aggregator *stats.Aggregator
	registry   *sessions.Registry
	supervisor *ami.Supervisor
	logger     *log.Logger

	startedAt time.Time
	version   string
}

func NewAPI(provider auth.Provider, jwt *middleware.JWTManager, st *state.Store, agg *stats.Aggregator, reg *sessions.Registry, sup *ami.Supervisor, version string, logger *log.Logger) *API {
	if logger == nil {
		logger = log.Default()
	}
	return &API{
		provider:   provider,
		jwt:        jwt,
		store:      st,
		aggregator: agg,
		registry:   reg,
		supervisor: sup,
		logger:     logger,
		startedAt:  time.Now(),
		version:    version,
	}
}

// Routes mounts every HTTP endpoint on the given engine.
func (a *API) Routes(r *gin.Engine) {
	r.POST("/login", middleware.RateLimitByIP(loginRateLimit), a.login)
	r.POST("/logout", a.logout)
	r.GET("/server-info", a.serverInfo)
	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.RequireAuth(a.jwt))
	{
		api.GET("/stats", a.statsSnapshot)
		api.GET("/stats/extension/:ext", a.extensionStats)
		api.GET("/stats/queue/:queue", a.queueStats)
		api.POST("/stats/reset", a.resetStats)
	}
}

type loginRequest struct {
	Extension string `json:"extension" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeInvalidRequest, "extension and password are required")
		return
	}

	user, err := a.provider.Authenticate(c.Request.Context(), req.Extension, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrUserNotFound) {
			apierrors.Error(c, apierrors.CodeInvalidCredentials)
			return
		}
		a.logger.Printf("http: login %s: %v", req.Extension, err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}

	token, err := a.jwt.GenerateToken(user)
	if err != nil {
		a.logger.Printf("http: issue token for %s: %v", user.Extension, err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}

	c.SetCookie("auth_token", token, int(12*time.Hour/time.Second), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"extension": user.Extension,
			"name":      user.Name,
		},
	})
}

func (a *API) logout(c *gin.Context) {
	c.SetCookie("auth_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (a *API) serverInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "panel-server",
		"version": a.version,
		"uptime":  stats.FormatUptime(time.Since(a.startedAt).Seconds()),
	})
}

func (a *API) health(c *gin.Context) {
	status := http.StatusOK
	healthy := a.supervisor.Connected()
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":            map[bool]string{true: "ok", false: "degraded"}[healthy],
		"amiConnected":      healthy,
		"reconnectAttempts": a.supervisor.Retries(),
		"connections":       a.registry.Count(),
		"uptime":            time.Since(a.startedAt).Seconds(),
	})
}

func (a *API) statsSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, buildSnapshot(a.store, a.aggregator))
}

func (a *API) extensionStats(c *gin.Context) {
	id := c.Param("ext")
	report, ok := a.aggregator.Extension(id)
	ext, stateOK := a.store.Extension(id)
	if !ok && !stateOK {
		apierrors.Error(c, apierrors.CodeExtensionNotFound)
		return
	}
	summary := ExtensionSummary{ExtensionReport: report, Status: models.StatusUnknown}
	summary.Extension = id
	if stateOK {
		summary.Status = ext.Status
		summary.StatusHistory = ext.StatusHistory
	}
	c.JSON(http.StatusOK, summary)
}

func (a *API) queueStats(c *gin.Context) {
	name := c.Param("queue")
	qv, ok := a.store.Queue(name)
	if !ok {
		apierrors.Error(c, apierrors.CodeQueueNotFound)
		return
	}
	c.JSON(http.StatusOK, QueueSummary{
		QueueView:    qv,
		ServiceLevel: a.aggregator.ServiceLevel(name),
	})
}

func (a *API) resetStats(c *gin.Context) {
	a.aggregator.Reset()
	a.logger.Printf("http: statistics reset by %s", c.GetString(middleware.CtxExtension))
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
