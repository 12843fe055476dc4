package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// POAgent drafts the product design from the submitted overview: vision,
// personas, epics, user stories, MVP scope, risks, and success metrics.
// It is the deterministic fallback used when no po_agent definition is
// loaded.
type POAgent struct{}

// NewPOAgent creates the product owner fallback agent.
func NewPOAgent() *POAgent { return &POAgent{} }

func (a *POAgent) ID() string { return "po_agent" }

func (a *POAgent) Category() core.AgentCategory { return core.CategoryDesign }

func (a *POAgent) Execute(_ context.Context, in core.AgentInput) (*core.AgentOutput, error) {
	overview := contextString(in.Context, "project_overview")
	if overview == "" {
		return core.Failure("no project overview provided"), nil
	}

	audience := contextString(in.Context, "target_users")
	if audience == "" {
		audience = "General users"
	}

	epics := epicsFrom(featureList(in.Context))
	stories := storiesFrom(epics)

	out := core.Success(map[string]any{
		"vision":            firstSentence(overview),
		"problem_statement": overview,
		"target_audience":   audience,
		"goals":             designGoals(),
		"personas":          designPersonas(audience, overview),
		"epics":             epics,
		"user_stories":      stories,
		"mvp_scope":         mvpScope(epics),
		"risks":             projectRisks(in.Context),
		"success_metrics":   successMetrics(),
	})
	out.Messages = []string{fmt.Sprintf("product design drafted: %d epics, %d user stories", len(epics), len(stories))}
	return out, nil
}

// RequirementAgent turns the product design into numbered functional and
// non-functional requirements. It reads the po_agent output when present
// and falls back to the submitted feature list.
type RequirementAgent struct{}

// NewRequirementAgent creates the requirements fallback agent.
func NewRequirementAgent() *RequirementAgent { return &RequirementAgent{} }

func (a *RequirementAgent) ID() string { return "requirement_agent" }

func (a *RequirementAgent) Category() core.AgentCategory { return core.CategoryDesign }

func (a *RequirementAgent) Execute(_ context.Context, in core.AgentInput) (*core.AgentOutput, error) {
	epics := designEpics(in)

	functional := make([]any, 0, len(epics))
	for i, title := range epics {
		priority := "should"
		if i < 3 {
			priority = "must"
		}
		functional = append(functional, map[string]any{
			"id":          fmt.Sprintf("REQ-%03d", i+1),
			"description": "The system shall provide " + lowerFirst(title) + ".",
			"priority":    priority,
		})
	}

	nonFunctional := []any{
		map[string]any{"id": "NFR-001", "category": "performance", "description": "Interactive requests complete within 500ms at the 95th percentile."},
		map[string]any{"id": "NFR-002", "category": "security", "description": "All traffic is encrypted in transit and credentials are never logged."},
		map[string]any{"id": "NFR-003", "category": "availability", "description": "The system recovers from a process restart without data loss."},
	}
	if c := contextString(in.Context, "constraints"); c != "" {
		nonFunctional = append(nonFunctional, map[string]any{
			"id":          fmt.Sprintf("NFR-%03d", len(nonFunctional)+1),
			"category":    "constraint",
			"description": c,
		})
	}

	out := core.Success(map[string]any{
		"functional":        functional,
		"non_functional":    nonFunctional,
		"user_stories":      designStories(in, epics),
		"requirement_count": len(functional) + len(nonFunctional),
	})
	out.Messages = []string{fmt.Sprintf("requirements derived: %d functional, %d non-functional", len(functional), len(nonFunctional))}
	return out, nil
}

// featureList splits the submitted key_features into individual feature
// statements.
func featureList(ctx map[string]any) []string {
	raw := contextString(ctx, "key_features")
	if raw == "" {
		return nil
	}
	split := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	features := make([]string, 0, len(split))
	for _, f := range split {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	return features
}

func epicsFrom(features []string) []any {
	if len(features) == 0 {
		features = []string{"Core functionality"}
	}
	epics := make([]any, 0, len(features))
	for i, f := range features {
		epics = append(epics, map[string]any{
			"id":          fmt.Sprintf("EP-%d", i+1),
			"title":       f,
			"description": "Deliver " + lowerFirst(f) + ".",
		})
	}
	return epics
}

func storiesFrom(epics []any) []any {
	stories := make([]any, 0, len(epics))
	for i, e := range epics {
		epic, _ := e.(map[string]any)
		title, _ := epic["title"].(string)
		stories = append(stories, map[string]any{
			"id":    fmt.Sprintf("US-%d", i+1),
			"epic":  epic["id"],
			"story": "As a user, I want " + lowerFirst(title) + ".",
		})
	}
	return stories
}

// mvpScope keeps the first five epics in scope and defers the rest.
func mvpScope(epics []any) map[string]any {
	included := make([]any, 0, len(epics))
	excluded := make([]any, 0)
	for i, e := range epics {
		epic, _ := e.(map[string]any)
		if i < 5 {
			included = append(included, epic["title"])
		} else {
			excluded = append(excluded, epic["title"])
		}
	}
	return map[string]any{"included": included, "excluded": excluded}
}

func designGoals() []any {
	return []any{
		map[string]any{"description": "Deliver a working MVP", "priority": "high"},
		map[string]any{"description": "Validate the core user journey", "priority": "high"},
		map[string]any{"description": "Build a foundation that scales with demand", "priority": "medium"},
	}
}

func designPersonas(audience, overview string) []any {
	return []any{
		map[string]any{"name": "Primary user", "role": audience, "needs": firstSentence(overview)},
		map[string]any{"name": "Administrator", "role": "Operates and configures the system", "needs": "Visibility and control over usage"},
	}
}

func successMetrics() []any {
	return []any{
		map[string]any{"metric": "time_to_first_value", "target": "under 10 minutes"},
		map[string]any{"metric": "weekly_active_users", "target": "growing week over week"},
	}
}

func projectRisks(ctx map[string]any) []any {
	risks := []any{
		map[string]any{"description": "Scope creep beyond the MVP", "mitigation": "Approval gates on the design phases"},
		map[string]any{"description": "Unvalidated user demand", "mitigation": "Ship the core journey first and measure adoption"},
	}
	if c := contextString(ctx, "constraints"); c != "" {
		risks = append(risks, map[string]any{
			"description": "Declared constraints: " + c,
			"mitigation":  "Carry the constraints into the architecture review",
		})
	}
	return risks
}

// designEpics pulls epic titles from the product design, falling back to
// the submitted feature list.
func designEpics(in core.AgentInput) []string {
	if out := depOutput(in.Dependencies, "po_agent"); out != nil {
		if raw, ok := out["epics"].([]any); ok {
			titles := make([]string, 0, len(raw))
			for _, e := range raw {
				if m, ok := e.(map[string]any); ok {
					if t, _ := m["title"].(string); t != "" {
						titles = append(titles, t)
					}
				}
			}
			if len(titles) > 0 {
				return titles
			}
		}
	}
	if features := featureList(in.Context); len(features) > 0 {
		return features
	}
	return []string{"Core functionality"}
}

// designStories reuses the product design's user stories when present.
func designStories(in core.AgentInput, epics []string) []any {
	if out := depOutput(in.Dependencies, "po_agent"); out != nil {
		if raw, ok := out["user_stories"].([]any); ok && len(raw) > 0 {
			return raw
		}
	}
	return storiesFrom(epicsFrom(epics))
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".!?"); i > 0 {
		s = s[:i+1]
	}
	if r := []rune(s); len(r) > 200 {
		s = string(r[:200])
	}
	return s
}

func lowerFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = []rune(strings.ToLower(string(r[0])))[0]
	return string(r)
}

var (
	_ core.Agent = (*POAgent)(nil)
	_ core.Agent = (*RequirementAgent)(nil)
)
