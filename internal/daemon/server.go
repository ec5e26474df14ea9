package daemon

import (
	"context"
	"drivemirror/internal/feed"
	"drivemirror/internal/logger"
	"drivemirror/internal/metrics"
	"drivemirror/internal/monitor"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Server struct {
	echo    *echo.Echo
	actions *Actions
	poller  *monitor.Poller
	feed    *feed.Feed
	runs    *RunManager
	port    int
	stopCh  chan struct{}
}

func NewServer(actions *Actions, poller *monitor.Poller, f *feed.Feed, runs *RunManager, port int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		actions: actions,
		poller:  poller,
		feed:    f,
		runs:    runs,
		port:    port,
		stopCh:  make(chan struct{}, 1),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	// For the entire daemon
	s.echo.GET("/status", s.handleStatus)
	s.echo.POST("/stop", s.handleStop)
	s.echo.GET("/messages", s.handleMessages)
	s.echo.GET("/runs/:id", s.handleRun)
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// Monitor tasks
	g := s.echo.Group("/tasks")
	g.GET("", s.handleListTasks)
	g.POST("", s.handleAddTask)
	g.DELETE("", s.handleRemoveTask)

	// Drive actions
	s.echo.POST("/copy", s.handleCopy)
	s.echo.POST("/cancel", s.handleCancel)
	s.echo.POST("/permissions", s.handlePermissions)
	s.echo.GET("/inspect", s.handleInspect)
	s.echo.GET("/report", s.handleReport)
}

func (s *Server) Start() {
	go func() {
		addr := ":" + strconv.Itoa(s.port)
		logger.Log.Info("daemon server started",
			zap.String("addr", addr))

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("daemon server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	s.poller.Stop()
	return s.echo.Shutdown(ctx)
}

func (s *Server) StopCh() <-chan struct{} {
	return s.stopCh
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func errorJSON(c echo.Context, err error) error {
	return c.JSON(statusFor(err), map[string]string{"error": err.Error()})
}

func (s *Server) handleStatus(c echo.Context) error {
	tasks, err := s.actions.Tasks()
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"poller": s.poller.Snapshot(),
		"tasks":  len(tasks),
		"runs":   s.runs.Snapshots(),
	})
}

func (s *Server) handleStop(c echo.Context) error {
	select {
	case s.stopCh <- struct{}{}:
	default:
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleMessages(c echo.Context) error {
	n := 50
	if nStr := c.QueryParam("n"); nStr != "" {
		if parsed, err := strconv.Atoi(nStr); err == nil {
			n = parsed
		}
	}

	return c.JSON(http.StatusOK, s.feed.Recent(n))
}

func (s *Server) handleRun(c echo.Context) error {
	snap, ok := s.runs.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}

	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleListTasks(c echo.Context) error {
	tasks, err := s.actions.Tasks()
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, tasks)
}

type pairRequest struct {
	Src string `json:"src" query:"src"`
	Dst string `json:"dst" query:"dst"`
}

func accepted(c echo.Context, runID string) error {
	return c.JSON(http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Server) handleAddTask(c echo.Context) error {
	var req pairRequest
	if err := c.Bind(&req); err != nil || req.Src == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "src required"})
	}

	runID, err := s.actions.AddMonitor(req.Src, req.Dst)
	if err != nil {
		return errorJSON(c, err)
	}

	return accepted(c, runID)
}

func (s *Server) handleRemoveTask(c echo.Context) error {
	req := pairRequest{
		Src: c.QueryParam("src"),
		Dst: c.QueryParam("dst"),
	}
	if req.Src == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "src required"})
	}

	removed, err := s.actions.RemoveMonitor(c.Request().Context(), req.Src, req.Dst)
	if err != nil {
		return errorJSON(c, err)
	}

	if !removed {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no monitor task found with the given paths"})
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleCopy(c echo.Context) error {
	var req pairRequest
	if err := c.Bind(&req); err != nil || req.Src == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "src required"})
	}

	runID, err := s.actions.Copy(req.Src, req.Dst)
	if err != nil {
		return errorJSON(c, err)
	}

	return accepted(c, runID)
}

func (s *Server) handleCancel(c echo.Context) error {
	return accepted(c, s.actions.CancelAll())
}

type permissionRequest struct {
	URL   string `json:"url"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Server) handlePermissions(c echo.Context) error {
	var req permissionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	permID, err := s.actions.SetPermission(c.Request().Context(), req.URL, req.Email, req.Role)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"permission_id": permID})
}

func (s *Server) handleInspect(c echo.Context) error {
	out, err := s.actions.Inspect(c.Request().Context(), c.QueryParam("url"))
	if err != nil {
		return errorJSON(c, err)
	}

	return c.String(http.StatusOK, out)
}

func (s *Server) handleReport(c echo.Context) error {
	out, err := s.actions.Report()
	if err != nil {
		return errorJSON(c, err)
	}

	return c.String(http.StatusOK, out)
}
