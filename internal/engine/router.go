package engine

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the frontend on router. Dispatch is method-agnostic;
// the handlers decide per method. Mount it after every fixed-prefix route.
func RegisterRoutes(router fiber.Router, h *Handler) {
	router.All("/favicon.ico", h.Favicon)
	router.All("/", h.Home)
	router.All("/:group", h.Group)
	router.All("/:group/:entity", h.List)
	router.All("/:group/:entity/:action", h.Action)
	router.All("/:group/:entity/:action/:id", h.Action)
}
