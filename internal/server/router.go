package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wardenproc/warden/internal/launcher"
	"github.com/wardenproc/warden/internal/store"
	"github.com/wardenproc/warden/internal/supervisor"
)

// Router exposes the supervisor's control surface over HTTP.
// Endpoints under basePath:
//
//	POST /start
//	POST /stop
//	POST /restart
//	GET  /status
//	GET  /history?limit=N
type Router struct {
	sup      *supervisor.Supervisor
	st       store.Store
	service  string
	basePath string
}

// NewRouter constructs a Router. st may be nil; /history then returns 404.
func NewRouter(sup *supervisor.Supervisor, st store.Store, service, basePath string) *Router {
	return &Router{sup: sup, st: st, service: service, basePath: sanitizeBase(basePath)}
}

// Handler returns a gin-powered http.Handler mountable in any server.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/start", r.handleStart)
	group.POST("/stop", r.handleStop)
	group.POST("/restart", r.handleRestart)
	group.GET("/status", r.handleStatus)
	group.GET("/history", r.handleHistory)
	return g
}

// NewServer starts a standalone HTTP server for the router. Close the
// returned server to shut it down.
func NewServer(addr, basePath string, sup *supervisor.Supervisor, st store.Store, service string) *http.Server {
	r := NewRouter(sup, st, service, basePath)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

type errorResp struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleStart(c *gin.Context) {
	if err := r.sup.Start(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStop(c *gin.Context) {
	if err := r.sup.Stop(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}

func (r *Router) handleRestart(c *gin.Context) {
	if err := r.sup.Restart(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.sup.Status())
}

func (r *Router) handleHistory(c *gin.Context) {
	if r.st == nil {
		c.JSON(http.StatusNotFound, errorResp{Error: "no event store configured"})
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	events, err := r.st.Recent(c.Request.Context(), r.service, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}

// writeError maps supervisor errors to HTTP statuses and a stable kind the
// CLI converts back into exit codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	kind := ""
	switch {
	case errors.Is(err, supervisor.ErrAlreadyRunning):
		status, kind = http.StatusConflict, KindAlreadyRunning
	case errors.Is(err, supervisor.ErrOperationInProgress):
		status, kind = http.StatusConflict, KindOpInProgress
	case errors.Is(err, supervisor.ErrStartTimeout):
		status, kind = http.StatusGatewayTimeout, KindStartTimeout
	case errors.Is(err, supervisor.ErrStopTimeout):
		status, kind = http.StatusGatewayTimeout, KindStopTimeout
	case errors.Is(err, supervisor.ErrEarlyExit):
		status, kind = http.StatusBadGateway, KindEarlyExit
	case errors.Is(err, launcher.ErrSpawn):
		status, kind = http.StatusUnprocessableEntity, KindSpawn
	}
	c.JSON(status, errorResp{Error: err.Error(), Kind: kind})
}
