package blueprints

import (
	"errors"
	"strconv"
	"strings"

	"blueprint-library/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles HTTP requests for the blueprint library.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the library routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/blueprints", h.HandleListBlueprints)
	app.Get("/blueprints/:id", h.HandleGetBlueprint)
	app.Get("/industry/jobs", h.HandleListIndustryJobs)
	app.Get("/locations", h.HandleListLocations)
}

// scopeFromQuery builds the viewer's access scope from query parameters.
// The surrounding auth system is expected to fill these in; the core only
// applies them.
func scopeFromQuery(c *fiber.Ctx) AccessScope {
	return AccessScope{
		AllianceWide:   c.QueryBool("alliance"),
		CorporationIDs: parseIDList(c.Query("corporation_ids")),
		CharacterIDs:   parseIDList(c.Query("character_ids")),
	}
}

func parseIDList(raw string) []int64 {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// HandleListBlueprints returns the blueprints visible to the viewer.
func (h *Handler) HandleListBlueprints(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	views, err := h.service.ListBlueprints(c.Context(), scopeFromQuery(c), c.Query("search"))
	if err != nil {
		l.Error("Blueprint listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"count": len(views), "blueprints": views})
}

// HandleGetBlueprint returns one blueprint with its linked industry jobs.
func (h *Handler) HandleGetBlueprint(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid blueprint id"})
	}

	view, jobs, err := h.service.GetBlueprint(c.Context(), scopeFromQuery(c), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "blueprint not found"})
		}
		l.Error("Blueprint detail failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"blueprint": view, "industry_jobs": jobs})
}

// HandleListIndustryJobs returns the industry jobs visible to the viewer.
func (h *Handler) HandleListIndustryJobs(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	jobs, err := h.service.ListIndustryJobs(c.Context(), scopeFromQuery(c))
	if err != nil {
		l.Error("Job listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"count": len(jobs), "jobs": jobs})
}

// HandleListLocations returns the location name cache.
func (h *Handler) HandleListLocations(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	locations, err := h.service.ListLocations(c.Context())
	if err != nil {
		l.Error("Location listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"count": len(locations), "locations": locations})
}
