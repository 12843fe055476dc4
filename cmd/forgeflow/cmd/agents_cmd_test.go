package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/registry"
)

type fakeAgent struct {
	id       string
	category core.AgentCategory
}

func (a *fakeAgent) ID() string { return a.id }

func (a *fakeAgent) Category() core.AgentCategory { return a.category }

func (a *fakeAgent) Execute(_ context.Context, _ core.AgentInput) (*core.AgentOutput, error) {
	return core.Success(map[string]any{"agent": a.id}), nil
}

func TestDescribeAgent(t *testing.T) {
	reg := registry.New(nil)
	require.NoError(t, reg.RegisterAgent(&fakeAgent{id: "scaffolder", category: core.CategoryScaffolding}))
	require.NoError(t, reg.RegisterDefinition("writer", &core.AgentDefinition{
		Name:        "Writer",
		Description: "Writes the project documentation",
		Category:    core.CategorySupport,
		Model:       "sonnet",
	}))

	t.Run("native agent", func(t *testing.T) {
		row := describeAgent(reg, "scaffolder")
		assert.Equal(t, "native", row.source)
		assert.Equal(t, "scaffolding", row.category)
		assert.Empty(t, row.model)
	})

	t.Run("definition agent", func(t *testing.T) {
		row := describeAgent(reg, "writer")
		assert.Equal(t, "definition", row.source)
		assert.Equal(t, "support", row.category)
		assert.Equal(t, "sonnet", row.model)
		assert.Equal(t, "Writes the project documentation", row.description)
	})
}

func TestDefinitionMarkdown(t *testing.T) {
	def := &core.AgentDefinition{
		Name:         "Writer",
		Description:  "Writes the project documentation",
		Category:     core.CategorySupport,
		Model:        "sonnet",
		Tools:        []string{"read", "write"},
		Instructions: "Write clearly.\nPrefer short sentences.",
	}

	md := definitionMarkdown("writer", def)

	assert.True(t, strings.HasPrefix(md, "# Writer\n"))
	assert.Contains(t, md, "Writes the project documentation")
	assert.Contains(t, md, "- Category: support")
	assert.Contains(t, md, "- Model: sonnet")
	assert.Contains(t, md, "- Tools: read, write")
	assert.Contains(t, md, "## Instructions")
	assert.Contains(t, md, "Prefer short sentences.")
}

func TestDefinitionMarkdownFallsBackToID(t *testing.T) {
	md := definitionMarkdown("reviewer", &core.AgentDefinition{
		Category:     core.CategorySupport,
		Instructions: "Review the artifact.",
	})

	assert.True(t, strings.HasPrefix(md, "# reviewer\n"))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", truncateText("short", 10))
	assert.Equal(t, "exact", truncateText("exact", 5))

	long := strings.Repeat("a", 70)
	got := truncateText(long, 60)
	assert.Len(t, got, 60)
	assert.True(t, strings.HasSuffix(got, "..."))

	assert.Equal(t, "ab", truncateText("abcd", 2))
}
