package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

const fence = "```"

// stripFence removes a surrounding markdown code fence and its optional
// language tag.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, fence) {
		return text
	}
	body := strings.TrimPrefix(text, fence)
	tagEnd := strings.IndexFunc(body, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '+')
	})
	if tagEnd < 0 {
		tagEnd = len(body)
	}
	body = body[tagEnd:]
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, fence)
	return strings.TrimSpace(body)
}

// parseReply decodes the model reply into its top-level JSON object.
func parseReply(raw string) (map[string]json.RawMessage, error) {
	text := stripFence(raw)
	if text == "" {
		return nil, &Error{Kind: KindParse, Err: errors.New("empty reply")}
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, &Error{Kind: KindParse, Err: err}
	}
	if obj == nil {
		return nil, &Error{Kind: KindParse, Err: errors.New("reply is not a JSON object")}
	}
	return obj, nil
}

// extract keeps only values that exactly match an allowed enum member. Each
// rejected field is reported as a schema error and left nil.
func extract(obj map[string]json.RawMessage) (domain.Classification, []*Error) {
	var (
		result domain.Classification
		issues []*Error
	)

	if value, err := stringField(obj, "category"); err != nil {
		issues = append(issues, err)
	} else if category := domain.TicketCategory(value); category.IsValid() {
		result.SuggestedCategory = &category
	} else {
		issues = append(issues, &Error{Kind: KindSchema, Err: fmt.Errorf("category %q not allowed", value)})
	}

	if value, err := stringField(obj, "priority"); err != nil {
		issues = append(issues, err)
	} else if priority := domain.TicketPriority(value); priority.IsValid() {
		result.SuggestedPriority = &priority
	} else {
		issues = append(issues, &Error{Kind: KindSchema, Err: fmt.Errorf("priority %q not allowed", value)})
	}

	return result, issues
}

func stringField(obj map[string]json.RawMessage, key string) (string, *Error) {
	raw, ok := obj[key]
	if !ok {
		return "", &Error{Kind: KindSchema, Err: fmt.Errorf("%s missing", key)}
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", &Error{Kind: KindSchema, Err: fmt.Errorf("%s is not a string", key)}
	}
	return value, nil
}
