package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-triage/internal/domain"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

func validFields() domain.TicketFields {
	return domain.TicketFields{
		Title:       "  Invoice wrong  ",
		Description: "I was charged twice this month.",
		Category:    domain.TicketCategoryBilling,
		Priority:    domain.TicketPriorityHigh,
	}
}

func fieldDetails(t *testing.T, err error) map[string]any {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %v", err)
	require.Equal(t, apperrors.CodeValidationFailed, domainErr.Code)
	return domainErr.Details
}

func ptr[T any](v T) *T { return &v }

func TestValidateCreate_DefaultsStatusAndTrims(t *testing.T) {
	ticket, err := New().ValidateCreate(validFields())
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, "Invoice wrong", ticket.Title)
	assert.Equal(t, domain.TicketCategoryBilling, ticket.Category)
	assert.Empty(t, ticket.ID)
	assert.True(t, ticket.CreatedAt.IsZero())
}

func TestValidateCreate_KeepsSuppliedStatus(t *testing.T) {
	fields := validFields()
	fields.Status = domain.TicketStatusInProgress
	ticket, err := New().ValidateCreate(fields)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
}

func TestValidateCreate_MissingFields(t *testing.T) {
	_, err := New().ValidateCreate(domain.TicketFields{})
	details := fieldDetails(t, err)
	for _, field := range []string{"title", "description", "category", "priority"} {
		assert.Equal(t, "This field is required.", details[field], field)
	}
	assert.NotContains(t, details, "status")
}

func TestValidateCreate_BlankText(t *testing.T) {
	fields := validFields()
	fields.Title = "   "
	fields.Description = "\n\t"
	_, err := New().ValidateCreate(fields)
	details := fieldDetails(t, err)
	assert.Equal(t, "This field may not be blank.", details["title"])
	assert.Equal(t, "This field may not be blank.", details["description"])
}

func TestValidateCreate_TitleLength(t *testing.T) {
	fields := validFields()
	fields.Title = strings.Repeat("é", domain.TitleMaxLength)
	_, err := New().ValidateCreate(fields)
	require.NoError(t, err, "200 multi-byte characters are allowed")

	fields.Title = strings.Repeat("a", domain.TitleMaxLength+1)
	_, err = New().ValidateCreate(fields)
	details := fieldDetails(t, err)
	assert.Contains(t, details["title"], "200")
}

func TestValidateTitleLengthCountsTrimmedText(t *testing.T) {
	v := New()
	padded := "  " + strings.Repeat("x", domain.TitleMaxLength-2) + "   \n"

	fields := validFields()
	fields.Title = padded
	ticket, err := v.ValidateCreate(fields)
	require.NoError(t, err)
	assert.Len(t, ticket.Title, domain.TitleMaxLength-2)

	patch, err := v.ValidatePatch(domain.TicketPatch{Title: &padded})
	require.NoError(t, err)
	assert.Len(t, *patch.Title, domain.TitleMaxLength-2)

	tooLong := " " + strings.Repeat("x", domain.TitleMaxLength+1) + " "
	_, err = v.ValidatePatch(domain.TicketPatch{Title: &tooLong})
	assert.Contains(t, fieldDetails(t, err)["title"], "200")
}

func TestValidateCreate_UnknownEnumValues(t *testing.T) {
	fields := validFields()
	fields.Category = "shipping"
	fields.Priority = "urgent"
	fields.Status = "archived"
	_, err := New().ValidateCreate(fields)
	details := fieldDetails(t, err)
	assert.Equal(t, `"shipping" is not a valid choice.`, details["category"])
	assert.Equal(t, `"urgent" is not a valid choice.`, details["priority"])
	assert.Equal(t, `"archived" is not a valid choice.`, details["status"])
}

func TestValidateCreate_EnumsAreCaseSensitive(t *testing.T) {
	fields := validFields()
	fields.Category = "Billing"
	_, err := New().ValidateCreate(fields)
	details := fieldDetails(t, err)
	assert.Contains(t, details, "category")
}

func TestValidatePatch_OnlySuppliedFieldsChecked(t *testing.T) {
	v := New()

	patch, err := v.ValidatePatch(domain.TicketPatch{Status: ptr(domain.TicketStatusClosed)})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, *patch.Status)
	assert.Nil(t, patch.Title)

	_, err = v.ValidatePatch(domain.TicketPatch{})
	require.NoError(t, err)
}

func TestValidatePatch_RejectsInvalidSuppliedFields(t *testing.T) {
	_, err := New().ValidatePatch(domain.TicketPatch{
		Title:    ptr(""),
		Priority: ptr(domain.TicketPriority("urgent")),
		Status:   ptr(domain.TicketStatus("reopened")),
	})
	details := fieldDetails(t, err)
	assert.Contains(t, details, "title")
	assert.Contains(t, details, "priority")
	assert.Contains(t, details, "status")
	assert.NotContains(t, details, "category")
}

func TestValidatePatch_TrimsText(t *testing.T) {
	patch, err := New().ValidatePatch(domain.TicketPatch{Title: ptr("  Printer offline ")})
	require.NoError(t, err)
	assert.Equal(t, "Printer offline", *patch.Title)
}

func TestValidateDescription(t *testing.T) {
	v := New()
	require.NoError(t, v.ValidateDescription("My invoice is wrong"))
	details := fieldDetails(t, v.ValidateDescription("  "))
	assert.Equal(t, "This field is required.", details["description"])
}
