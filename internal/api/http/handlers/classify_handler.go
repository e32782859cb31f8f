package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-triage/internal/api/dto"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/validation"
)

// Classifier suggests a category and priority for a description.
type Classifier interface {
	Classify(ctx context.Context, description string) domain.Classification
}

// ClassifyHandler serves classification suggestions.
type ClassifyHandler struct {
	classifier Classifier
	validator  *validation.Validator
}

// NewClassifyHandler constructs handler.
func NewClassifyHandler(classifier Classifier, validator *validation.Validator) *ClassifyHandler {
	if validator == nil {
		validator = validation.New()
	}
	return &ClassifyHandler{classifier: classifier, validator: validator}
}

// Usage GET /api/tickets/classify.
func (h *ClassifyHandler) Usage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Send a POST request with a 'description' field to classify a ticket.",
	})
}

// Classify POST /api/tickets/classify. Upstream failures still answer 200
// with null suggestions.
func (h *ClassifyHandler) Classify(c *fiber.Ctx) error {
	var req dto.ClassifyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.validator.ValidateDescription(req.Description); err != nil {
		return err
	}
	return c.JSON(h.classifier.Classify(c.UserContext(), req.Description))
}
