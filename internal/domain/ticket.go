package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketCategory enumerates the support area a ticket belongs to.
type TicketCategory string

const (
	TicketCategoryBilling   TicketCategory = "billing"
	TicketCategoryTechnical TicketCategory = "technical"
	TicketCategoryAccount   TicketCategory = "account"
	TicketCategoryGeneral   TicketCategory = "general"
)

// TicketCategories lists every category in declaration order.
var TicketCategories = []TicketCategory{
	TicketCategoryBilling,
	TicketCategoryTechnical,
	TicketCategoryAccount,
	TicketCategoryGeneral,
}

// IsValid reports whether c is one of the known categories.
func (c TicketCategory) IsValid() bool {
	for _, candidate := range TicketCategories {
		if c == candidate {
			return true
		}
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// TicketPriorities lists every priority in declaration order.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

// IsValid reports whether p is one of the known priorities.
func (p TicketPriority) IsValid() bool {
	for _, candidate := range TicketPriorities {
		if p == candidate {
			return true
		}
	}
	return false
}

// TicketStatus enumerates lifecycle states for tickets. Any state may follow
// any other; open -> in_progress -> resolved -> closed is the usual path.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every status in declaration order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// IsValid reports whether s is one of the known statuses.
func (s TicketStatus) IsValid() bool {
	for _, candidate := range TicketStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// TitleMaxLength is the maximum number of characters in a ticket title.
const TitleMaxLength = 200

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Category    TicketCategory
	Priority    TicketPriority
	Status      TicketStatus
	CreatedAt   time.Time
}

func (t Ticket) String() string {
	return fmt.Sprintf("[%s] %s (%s)", strings.ToUpper(string(t.Priority)), t.Title, t.Status)
}

// TicketFields is the caller supplied input for a new ticket.
type TicketFields struct {
	Title       string         `json:"title" validate:"required,nonblank,trimmax=200"`
	Description string         `json:"description" validate:"required,nonblank"`
	Category    TicketCategory `json:"category" validate:"required,category"`
	Priority    TicketPriority `json:"priority" validate:"required,priority"`
	Status      TicketStatus   `json:"status" validate:"omitempty,status"`
}

// TicketPatch carries a partial update. Nil fields are left untouched.
type TicketPatch struct {
	Title       *string         `json:"title" validate:"omitempty,nonblank,trimmax=200"`
	Description *string         `json:"description" validate:"omitempty,nonblank"`
	Category    *TicketCategory `json:"category" validate:"omitempty,category"`
	Priority    *TicketPriority `json:"priority" validate:"omitempty,priority"`
	Status      *TicketStatus   `json:"status" validate:"omitempty,status"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TicketPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.Priority == nil && p.Status == nil
}

// ChangedFields returns the column names the patch touches.
func (p TicketPatch) ChangedFields() []string {
	fields := make([]string, 0, 5)
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Category != nil {
		fields = append(fields, "category")
	}
	if p.Priority != nil {
		fields = append(fields, "priority")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	return fields
}
