package requests

import (
	"errors"

	"blueprint-library/core/logger"
	"blueprint-library/feature/blueprints/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles HTTP requests for the request workflow.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the request workflow routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/requests")
	group.Post("/", h.HandleCreate)
	group.Get("/", h.HandleListMine)
	group.Get("/open", h.HandleListOpen)
	group.Post("/:reference/approve", h.decideHandler(models.RequestStatusApproved))
	group.Post("/:reference/deny", h.decideHandler(models.RequestStatusDenied))
}

type createPayload struct {
	CharacterID   int64  `json:"character_id"`
	CharacterName string `json:"character_name"`
	TypeID        int32  `json:"type_id"`
}

type decidePayload struct {
	DecidedBy string `json:"decided_by"`
	Notes     string `json:"notes"`
}

// HandleCreate opens a new blueprint request.
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var payload createPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	if payload.CharacterID == 0 || payload.TypeID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "character_id and type_id are required"})
	}

	req, err := h.service.Create(c.Context(), payload.CharacterID, payload.CharacterName, payload.TypeID)
	if err != nil {
		l.Error("Request creation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// HandleListMine returns the requests of the character given in the query.
func (h *Handler) HandleListMine(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	characterID := int64(c.QueryInt("character_id"))
	if characterID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "character_id is required"})
	}

	rows, err := h.service.ListForCharacter(c.Context(), characterID)
	if err != nil {
		l.Error("Request listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"count": len(rows), "requests": rows})
}

// HandleListOpen returns the open requests, oldest first.
func (h *Handler) HandleListOpen(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	rows, err := h.service.ListOpen(c.Context())
	if err != nil {
		l.Error("Open request listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"count": len(rows), "requests": rows})
}

func (h *Handler) decideHandler(status string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := logger.WithRayID(h.service.logger, c)

		var payload decidePayload
		_ = c.BodyParser(&payload)

		req, err := h.service.Decide(c.Context(), c.Params("reference"), status, payload.DecidedBy, payload.Notes)
		switch {
		case err == nil:
			return c.JSON(req)
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "request not found"})
		case errors.Is(err, ErrAlreadyDecided):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			l.Error("Request decision failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
	}
}
