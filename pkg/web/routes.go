package web

import "github.com/gofiber/fiber/v3"

// Register mounts every endpoint on router.
func (h *APIHandlers) Register(router fiber.Router) {
	p := router.Group("/playbooks")
	p.Get("/", h.ListPlaybooks)
	p.Post("/upload", h.UploadPlaybook)
	p.Post("/run/:name", h.RunPlaybook)
	p.Get("/:name", h.GetPlaybook)
	p.Put("/:name", h.UpdatePlaybook)
	p.Delete("/:name", h.DeletePlaybook)

	r := router.Group("/runs")
	r.Get("/", h.ListRuns)
	r.Get("/:id", h.GetRun)

	router.Get("/logs/stream/:id", h.StreamLogs)

	t := router.Group("/triggers")
	t.Get("/", h.ListTriggers)
	t.Post("/enable/:name", h.EnableTrigger)
	t.Post("/disable/:name", h.DisableTrigger)

	router.Get("/components", h.ListComponents)
	router.Get("/health", h.HealthCheck)
}
