package classifier

import (
	"fmt"
	"strings"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// BuildPrompt renders the instruction sent to the generation service. The
// output depends only on description.
func BuildPrompt(description string) string {
	var b strings.Builder
	b.WriteString("You are a support ticket classifier.\n")
	b.WriteString("Allowed categories:\n")
	for _, category := range domain.TicketCategories {
		fmt.Fprintf(&b, "- %s\n", category)
	}
	b.WriteString("Allowed priorities:\n")
	for _, priority := range domain.TicketPriorities {
		fmt.Fprintf(&b, "- %s\n", priority)
	}
	b.WriteString("Respond ONLY with a valid JSON object with exactly two keys, \"category\" and \"priority\", and no extra text:\n")
	b.WriteString("{\n  \"category\": \"...\",\n  \"priority\": \"...\"\n}\n")
	b.WriteString("Ticket Description:\n")
	b.WriteString(description)
	b.WriteString("\n")
	return b.String()
}
