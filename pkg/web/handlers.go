package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/soarflow/pkg/broadcast"
	"github.com/dukex/soarflow/pkg/engine"
	"github.com/dukex/soarflow/pkg/persistence"
	"github.com/dukex/soarflow/pkg/playbook"
	"github.com/dukex/soarflow/pkg/registry"
	"github.com/dukex/soarflow/pkg/services"
	"github.com/dukex/soarflow/pkg/tracker"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	runner      *engine.Runner
	tracker     *tracker.Tracker
	broadcaster *broadcast.Broadcaster
	playbooks   *playbook.Store
	triggers    *services.TriggerCatalog
	registry    *registry.Registry
	persistence persistence.Persistence
	validator   *validator.Validate
	logger      *slog.Logger

	// KeepAlive is the interval between SSE comment frames on an idle stream.
	KeepAlive time.Duration
}

type Dependencies struct {
	Runner      *engine.Runner
	Tracker     *tracker.Tracker
	Broadcaster *broadcast.Broadcaster
	Playbooks   *playbook.Store
	Triggers    *services.TriggerCatalog
	Registry    *registry.Registry
	Persistence persistence.Persistence
	Logger      *slog.Logger
}

func NewAPIHandlers(deps Dependencies, validate *validator.Validate) *APIHandlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &APIHandlers{
		runner:      deps.Runner,
		tracker:     deps.Tracker,
		broadcaster: deps.Broadcaster,
		playbooks:   deps.Playbooks,
		triggers:    deps.Triggers,
		registry:    deps.Registry,
		persistence: deps.Persistence,
		validator:   validate,
		logger:      logger.With("module", "web"),
		KeepAlive:   15 * time.Second,
	}
}

// param returns a route parameter that is safe to keep after the request.
// Fiber hands out strings backed by the request buffer, which is reused.
func param(c fiber.Ctx, key string) string {
	return strings.Clone(c.Params(key))
}

// RunPlaybook starts a run in the background and answers with its id.
func (h *APIHandlers) RunPlaybook(c fiber.Ctx) error {
	name := param(c, "name")

	path, err := h.playbooks.Path(name)
	if err != nil {
		return handleError(c, err)
	}

	// The run outlives the request.
	runID, err := h.runner.Start(context.WithoutCancel(c.Context()), path)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(RunStartedResponse{RunID: runID, Playbook: name})
}

func (h *APIHandlers) ListRuns(c fiber.Ctx) error {
	var query ListRunsQuery

	if err := c.Bind().Query(&query); err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	if err := h.validator.Struct(query); err != nil {
		return badRequest(c, err.Error())
	}

	runs, err := h.tracker.ListRuns(c.Context(), query.Limit)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{"runs": runs})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	runID := param(c, "id")

	run, err := h.tracker.GetRun(c.Context(), runID)
	if err != nil {
		return handleError(c, err)
	}

	logs, err := h.tracker.GetLogs(c.Context(), runID)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(RunDetailResponse{Run: run, Logs: logs})
}

func (h *APIHandlers) ListPlaybooks(c fiber.Ctx) error {
	summaries, err := h.playbooks.List()
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(summaries)
}

func (h *APIHandlers) GetPlaybook(c fiber.Ctx) error {
	doc, err := h.playbooks.Read(param(c, "name"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(doc)
}

// UpdatePlaybook stores the request body as the playbook. A body of the form
// {"content": "<yaml>"} is written verbatim; any other JSON object is
// serialized to YAML.
func (h *APIHandlers) UpdatePlaybook(c fiber.Ctx) error {
	name := param(c, "name")

	var body map[string]any
	if err := json.Unmarshal(c.Body(), &body); err != nil || body == nil {
		return badRequest(c, "Invalid JSON format")
	}

	var err error
	if content, ok := body["content"].(string); ok {
		err = h.playbooks.Write(name, []byte(content))
	} else {
		err = h.playbooks.WriteDocument(name, body)
	}

	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(MessageResponse{Message: "Playbook updated", Name: name})
}

func (h *APIHandlers) DeletePlaybook(c fiber.Ctx) error {
	name := param(c, "name")

	if err := h.playbooks.Delete(name); err != nil {
		return handleError(c, err)
	}

	return c.JSON(MessageResponse{Message: "Playbook deleted", Name: name})
}

func (h *APIHandlers) UploadPlaybook(c fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "A playbook file is required in the 'file' field")
	}

	f, err := header.Open()
	if err != nil {
		return internalError(c, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return internalError(c, err)
	}

	if err := h.playbooks.Upload(header.Filename, content); err != nil {
		return handleError(c, err)
	}

	return c.JSON(MessageResponse{Message: "Playbook uploaded", File: header.Filename})
}

func (h *APIHandlers) ListTriggers(c fiber.Ctx) error {
	triggers, err := h.triggers.List(c.Context())
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{"triggers": triggers})
}

func (h *APIHandlers) EnableTrigger(c fiber.Ctx) error {
	status, err := h.triggers.Enable(c.Context(), param(c, "name"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) DisableTrigger(c fiber.Ctx) error {
	status, err := h.triggers.Disable(c.Context(), param(c, "name"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) ListComponents(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"components": h.registry.Components()})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()

	persistenceCheck, persOk := "ok", true
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		persistenceCheck, persOk = err.Error(), false
	}

	status := "unhealthy"
	message := "soarflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && persOk {
		status = "healthy"
		message = "soarflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":    registryCheck,
			"persistence": persistenceCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
