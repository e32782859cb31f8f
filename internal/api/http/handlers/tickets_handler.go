package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-triage/internal/api/dto"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/repository"
	"github.com/spec-kit/ticket-triage/internal/service"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

// TicketsHandler manages the ticket CRUD and statistics endpoints.
type TicketsHandler struct {
	service *service.TicketService
	stats   *service.StatsService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, statsService *service.StatsService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, stats: statsService}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Create(c.UserContext(), req.Fields())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewTicketResponse(ticket))
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	var query dto.TicketListQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}
	tickets, err := h.service.List(c.UserContext(), ticketFilter(query))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(items)
}

// UpdateTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := rejectNulls(c.Body()); err != nil {
		return err
	}
	ticket, err := h.service.Update(c.UserContext(), c.Params("id"), req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// Stats GET /api/tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.stats.Compute(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// ticketFilter keeps blank query values out of the filter.
func ticketFilter(query dto.TicketListQuery) repository.TicketFilter {
	filter := repository.TicketFilter{Search: strings.TrimSpace(query.Search)}
	if v := strings.TrimSpace(query.Category); v != "" {
		category := domain.TicketCategory(v)
		filter.Category = &category
	}
	if v := strings.TrimSpace(query.Priority); v != "" {
		priority := domain.TicketPriority(v)
		filter.Priority = &priority
	}
	if v := strings.TrimSpace(query.Status); v != "" {
		status := domain.TicketStatus(v)
		filter.Status = &status
	}
	return filter
}

// parseBody accepts only a JSON object sent as application/json.
func parseBody(c *fiber.Ctx, out any) error {
	if !c.Is("json") {
		return apperrors.NewDomainError(apperrors.CodeUnsupportedMedia,
			"unsupported media type", http.StatusUnsupportedMediaType,
			map[string]any{"content_type": c.Get(fiber.HeaderContentType)})
	}
	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 || body[0] != '{' {
		return apperrors.NewValidationError("malformed JSON body", map[string]any{
			"non_field_errors": "Expected a JSON object.",
		})
	}
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("malformed JSON body", map[string]any{
			"non_field_errors": err.Error(),
		})
	}
	return nil
}

var patchableFields = []string{"title", "description", "category", "priority", "status"}

// rejectNulls reports fields sent as explicit JSON null, which a pointer
// field cannot tell apart from an absent key.
func rejectNulls(body []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}
	details := map[string]any{}
	for _, field := range patchableFields {
		if value, ok := raw[field]; ok && string(bytes.TrimSpace(value)) == "null" {
			details[field] = "This field may not be null."
		}
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid payload", details)
	}
	return nil
}
