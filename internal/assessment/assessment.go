// Package assessment generates the structured assessment document from a
// formatted conversation.
package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"care-assess/internal/degrade"
	"care-assess/internal/llm"
	"care-assess/internal/model"
)

// TemplateLookup resolves a template name to its ordered section names.
type TemplateLookup interface {
	SectionNames(ctx context.Context, name string) ([]string, error)
}

// Output holds one text per template section plus the action items.
type Output struct {
	Sections    model.Sections
	ActionItems []string
}

// MarshalJSON flattens the sections next to "actionItems".
func (o Output) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(o.Sections)+1)
	for k, v := range o.Sections {
		flat[k] = v
	}
	items := o.ActionItems
	if items == nil {
		items = []string{}
	}
	flat["actionItems"] = items
	return json.Marshal(flat)
}

const systemPrompt = `You write home care assessments for social workers.

Using only what is said in the conversation, write a concise professional paragraph for each requested section and list concrete follow-up action items. If the conversation does not cover a section, say so briefly instead of inventing details.`

type Generator struct {
	llm       *llm.Client
	templates TemplateLookup
}

func New(client *llm.Client, templates TemplateLookup) *Generator {
	return &Generator{llm: client, templates: templates}
}

// Generate always returns every section key of the resolved template and a
// non-nil action item list. Failures degrade to generic content.
func (g *Generator) Generate(ctx context.Context, conversation, clientName, templateName string) degrade.Result[Output] {
	sections, reason := g.resolve(ctx, templateName)

	var raw map[string]any
	err := g.llm.JSON(ctx, systemPrompt, userPrompt(conversation, clientName, sections), "assessment", schema(sections), &raw)
	if err != nil {
		return degrade.Degraded(Fallback(sections), join(reason, "assessment generation failed: "+err.Error()))
	}

	out := normalize(raw, sections)
	if reason != "" {
		return degrade.Degraded(out, reason)
	}
	return degrade.Ok(out)
}

func (g *Generator) resolve(ctx context.Context, name string) ([]Section, string) {
	if g.templates == nil {
		return Sections(DefaultSections), "no template lookup configured"
	}
	names, err := g.templates.SectionNames(ctx, name)
	if err != nil {
		return Sections(DefaultSections), fmt.Sprintf("template %q unavailable: %v", name, err)
	}
	sections := Sections(names)
	if len(sections) == 0 {
		return Sections(DefaultSections), fmt.Sprintf("template %q has no sections", name)
	}
	return sections, ""
}

// Fallback produces generic content with the same shape as a generated one.
func Fallback(sections []Section) Output {
	out := Output{Sections: model.Sections{}, ActionItems: []string{"Review the recording and complete this assessment manually."}}
	for _, s := range sections {
		out.Sections[s.Key] = fmt.Sprintf("%s could not be generated automatically. Please complete this section from the recording.", s.Name)
	}
	return out
}

// normalize keeps exactly the expected keys, back-filling missing ones with
// an empty string, and coerces actionItems to a list of strings.
func normalize(raw map[string]any, sections []Section) Output {
	out := Output{Sections: make(model.Sections, len(sections)), ActionItems: []string{}}
	for _, s := range sections {
		out.Sections[s.Key] = text(raw[s.Key])
	}
	if items, ok := raw["actionItems"].([]any); ok {
		for _, item := range items {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out.ActionItems = append(out.ActionItems, strings.TrimSpace(s))
			}
		}
	}
	return out
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		lines := make([]string, 0, len(t))
		for _, item := range t {
			if s := text(item); s != "" {
				lines = append(lines, s)
			}
		}
		return strings.Join(lines, "\n")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func schema(sections []Section) jsonschema.Definition {
	props := make(map[string]jsonschema.Definition, len(sections)+1)
	required := make([]string, 0, len(sections)+1)
	for _, s := range sections {
		props[s.Key] = jsonschema.Definition{Type: jsonschema.String, Description: s.Name}
		required = append(required, s.Key)
	}
	props["actionItems"] = jsonschema.Definition{
		Type:  jsonschema.Array,
		Items: &jsonschema.Definition{Type: jsonschema.String},
	}
	required = append(required, "actionItems")
	return jsonschema.Definition{
		Type:                 jsonschema.Object,
		Properties:           props,
		Required:             required,
		AdditionalProperties: false,
	}
}

func userPrompt(conversation, clientName string, sections []Section) string {
	var b strings.Builder
	if clientName != "" {
		fmt.Fprintf(&b, "Client: %s\n\n", clientName)
	}
	b.WriteString("Return a JSON object with these keys:\n")
	for _, s := range sections {
		fmt.Fprintf(&b, "- %s: %s\n", s.Key, s.Name)
	}
	b.WriteString("- actionItems: list of follow-up actions\n\nConversation:\n")
	b.WriteString(conversation)
	return b.String()
}

func join(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
