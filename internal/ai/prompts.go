package ai

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/gigdesk-backend/pkg/enums"
)

// Prompts is the system/user pair sent upstream.
type Prompts struct {
	System string `json:"system"`
	User   string `json:"user"`
}

var requiredFields = map[enums.GenerationType][]string{
	enums.GenerationTypeProposal: {"client_name", "project_title", "project_description"},
	enums.GenerationTypeFollowup: {"client_name", "previous_message"},
}

const maxFieldLength = 4000

const (
	proposalSystem = "You write concise, persuasive freelance proposals for Indian independent professionals. " +
		"Write in plain prose with short paragraphs, address the client by name, restate their need, " +
		"explain the approach, and close with a clear next step. Never invent credentials."
	followupSystem = "You write polite, brief follow-up messages from a freelancer to a client. " +
		"Reference the earlier conversation, add one concrete piece of value, and end with a simple question. " +
		"Keep it under 150 words."
)

// ValidateFormInputs reports missing or oversized fields keyed by field name.
func ValidateFormInputs(genType enums.GenerationType, form map[string]string) map[string]string {
	problems := map[string]string{}
	for _, field := range requiredFields[genType] {
		if strings.TrimSpace(form[field]) == "" {
			problems[field] = "is required"
		}
	}
	for key, value := range form {
		if utf8.RuneCountInString(value) > maxFieldLength {
			problems[key] = fmt.Sprintf("must be at most %d characters", maxFieldLength)
		}
	}
	return problems
}

// BuildPrompts derives the prompts for a generation type from form inputs.
func BuildPrompts(genType enums.GenerationType, form map[string]string) (Prompts, error) {
	switch genType {
	case enums.GenerationTypeProposal:
		return Prompts{System: proposalSystem, User: proposalUser(form)}, nil
	case enums.GenerationTypeFollowup:
		return Prompts{System: followupSystem, User: followupUser(form)}, nil
	default:
		return Prompts{}, fmt.Errorf("unsupported generation type %q", genType)
	}
}

func proposalUser(form map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a proposal for %s.\n", field(form, "client_name"))
	fmt.Fprintf(&b, "Project: %s\n", field(form, "project_title"))
	fmt.Fprintf(&b, "Details: %s\n", field(form, "project_description"))
	optionalLine(&b, form, "budget", "Budget")
	optionalLine(&b, form, "timeline", "Timeline")
	optionalLine(&b, form, "skills", "Relevant skills")
	optionalLine(&b, form, "tone", "Tone")
	writeExtras(&b, form, "client_name", "project_title", "project_description", "budget", "timeline", "skills", "tone")
	return strings.TrimSpace(b.String())
}

func followupUser(form map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a follow-up to %s.\n", field(form, "client_name"))
	fmt.Fprintf(&b, "Previous message: %s\n", field(form, "previous_message"))
	optionalLine(&b, form, "days_since_contact", "Days since last contact")
	optionalLine(&b, form, "goal", "Goal of this follow-up")
	optionalLine(&b, form, "tone", "Tone")
	writeExtras(&b, form, "client_name", "previous_message", "days_since_contact", "goal", "tone")
	return strings.TrimSpace(b.String())
}

func field(form map[string]string, key string) string {
	return strings.TrimSpace(form[key])
}

func optionalLine(b *strings.Builder, form map[string]string, key, label string) {
	if v := field(form, key); v != "" {
		fmt.Fprintf(b, "%s: %s\n", label, v)
	}
}

// writeExtras appends unknown fields in key order so prompts stay
// deterministic.
func writeExtras(b *strings.Builder, form map[string]string, known ...string) {
	skip := make(map[string]struct{}, len(known))
	for _, k := range known {
		skip[k] = struct{}{}
	}
	keys := make([]string, 0, len(form))
	for k := range form {
		if _, ok := skip[k]; !ok && field(form, k) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s: %s\n", strings.ReplaceAll(k, "_", " "), field(form, k))
	}
}

// NormalizeFormInputs flattens decoded JSON form values into strings. Lists of
// scalars are joined with ", "; nested objects are rejected.
func NormalizeFormInputs(raw map[string]any) (map[string]string, map[string]string) {
	out := make(map[string]string, len(raw))
	problems := map[string]string{}
	for key, value := range raw {
		s, ok := scalarString(value)
		if !ok {
			list, isList := value.([]any)
			if !isList {
				problems[key] = "must be a string, number, boolean or list"
				continue
			}
			parts := make([]string, 0, len(list))
			for _, item := range list {
				part, ok := scalarString(item)
				if !ok {
					problems[key] = "list items must be scalars"
					break
				}
				if part != "" {
					parts = append(parts, part)
				}
			}
			s = strings.Join(parts, ", ")
		}
		if s = strings.TrimSpace(s); s != "" {
			out[key] = s
		}
	}
	return out, problems
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}
