package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowrun/errors"
	"github.com/kbukum/flowrun/logger"
	"github.com/kbukum/flowrun/server"
	"github.com/kbukum/flowrun/sse"
	"github.com/kbukum/flowrun/validation"
	"github.com/kbukum/flowrun/workflow"
)

// Definitions finds named workflow definitions. *workflow.FileLoader
// satisfies it.
type Definitions interface {
	Load(name string) (*workflow.Definition, error)
	List() []workflow.Definition
}

// Handler serves the /api routes.
type Handler struct {
	coord *workflow.Coordinator
	hub   *sse.Hub
	defs  Definitions
	log   *logger.Logger
	now   func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithEvents enables the event stream endpoint on hub.
func WithEvents(hub *sse.Hub) Option {
	return func(h *Handler) { h.hub = hub }
}

// WithDefinitions enables the named workflow endpoints.
func WithDefinitions(d Definitions) Option {
	return func(h *Handler) { h.defs = d }
}

// WithLogger sets the handler logger.
func WithLogger(l *logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// New creates a Handler that submits runs to coord.
func New(coord *workflow.Coordinator, opts ...Option) *Handler {
	h := &Handler{coord: coord, log: logger.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithComponent("api")
	return h
}

// Register mounts the routes on r under /api.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/api")
	g.GET("/health", h.Health)
	g.POST("/execute-workflow", h.Execute)
	g.GET("/execution-status/:id", h.Status)
	g.GET("/executions", h.List)
	g.GET("/execution-events/:id", h.Events)
	g.GET("/workflows", h.Workflows)
	g.POST("/workflows/:name/execute", h.ExecuteNamed)
}

// Health answers a liveness check for the engine API.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
	})
}

// Execute runs the submitted graph. The response is the run snapshot,
// whether the run completed or stopped on a failing node; with ?async=true
// it is 202 and the snapshot taken right after the run was registered.
func (h *Handler) Execute(c *gin.Context) {
	var g workflow.Graph
	if err := c.ShouldBindJSON(&g); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			server.RespondWithError(c, errors.PayloadTooLarge(tooLarge.Limit))
			return
		}
		server.RespondWithError(c, errors.Validation("invalid workflow payload").WithCause(err))
		return
	}
	if err := validation.Validate(&g); err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.run(c, &g)
}

// ExecuteNamed runs a stored workflow definition.
func (h *Handler) ExecuteNamed(c *gin.Context) {
	name := c.Param("name")
	if h.defs == nil {
		server.RespondWithError(c, errors.NotFound("workflow", name))
		return
	}
	def, err := h.defs.Load(name)
	switch {
	case stderrors.Is(err, os.ErrNotExist):
		server.RespondWithError(c, errors.NotFound("workflow", name))
		return
	case err != nil:
		server.RespondWithError(c, errors.InvalidInput("name", err.Error()).WithCause(err))
		return
	}
	h.run(c, &def.Graph)
}

func (h *Handler) run(c *gin.Context, g *workflow.Graph) {
	async, _ := strconv.ParseBool(c.Query("async"))
	ctx := c.Request.Context()

	run, err := h.coord.Start(ctx, g)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if async {
		c.JSON(http.StatusAccepted, run.Snapshot())
		return
	}

	snap, err := run.Wait(ctx)
	if err != nil {
		// The client went away; the run continues and stays queryable.
		h.log.WithContext(ctx).Debug("caller left before run finished", logger.Fields(
			logger.FieldRunID, run.ID(),
			logger.FieldError, err.Error(),
		))
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Status returns the current snapshot of one run.
func (h *Handler) Status(c *gin.Context) {
	snap, err := h.coord.Store().Get(c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// List returns summaries of every run, newest first.
func (h *Handler) List(c *gin.Context) {
	runs := h.coord.Store().List()
	server.RespondList(c, runs)
}

// Events streams a run's lifecycle events. The stream opens with the
// current snapshot and closes after the run's terminal event, or right
// after the snapshot when the run has already finished.
func (h *Handler) Events(c *gin.Context) {
	id := c.Param("id")
	store := h.coord.Store()
	if _, err := store.Get(id); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if h.hub == nil {
		server.RespondWithError(c, errors.ServiceUnavailable("events"))
		return
	}

	sse.ServeSSE(h.hub, c.Writer, c.Request, sse.RunClientID(id),
		sse.WithClientOptions(sse.WithMetadata("execution_id", id)),
		sse.WithInitial(func() ([]sse.Frame, bool) {
			snap, err := store.Get(id)
			if err != nil {
				return nil, true
			}
			data, err := json.Marshal(snap)
			if err != nil {
				h.log.Error("encode snapshot", logger.ErrorFields("events", err))
				return nil, true
			}
			return []sse.Frame{{Event: sse.EventTypeSnapshot, Data: data}}, snap.Status != workflow.RunRunning
		}),
		sse.WithUntil(sse.IsTerminal),
	)
}

// DefinitionInfo is the listing form of a stored workflow.
type DefinitionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Nodes       int    `json:"nodes"`
	Edges       int    `json:"edges"`
}

// Workflows lists the stored workflow definitions.
func (h *Handler) Workflows(c *gin.Context) {
	infos := []DefinitionInfo{}
	if h.defs != nil {
		for _, d := range h.defs.List() {
			infos = append(infos, DefinitionInfo{
				Name:        d.Name,
				Description: d.Description,
				Nodes:       len(d.Nodes),
				Edges:       len(d.Edges),
			})
		}
	}
	server.RespondList(c, infos)
}
