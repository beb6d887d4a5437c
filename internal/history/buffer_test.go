package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulzo/concierge-bot/pkg/schema"
)

func TestAppendAndTrimKeepsMostRecent(t *testing.T) {
	var h []schema.ChatMessage
	for i := 0; i < 5; i++ {
		h = Append(h, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), 4)
		assert.LessOrEqual(t, len(h), 4)
	}

	require.Len(t, h, 4)
	assert.Equal(t, "q3", h[0].Content)
	assert.Equal(t, "a3", h[1].Content)
	assert.Equal(t, "q4", h[2].Content)
	assert.Equal(t, "a4", h[3].Content)
	assert.Equal(t, schema.RoleUser, h[0].Role)
	assert.Equal(t, schema.RoleAssistant, h[1].Role)
}

func TestAppendStatelessMode(t *testing.T) {
	var h []schema.ChatMessage
	for i := 0; i < 3; i++ {
		h = Append(h, "hello", "hi", 0)
		assert.Empty(t, h, "maxMessages=0 clears history every turn")
	}
}

func TestAppendDoesNotMutateInput(t *testing.T) {
	h := []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "q0"},
		{Role: schema.RoleAssistant, Content: "a0"},
	}
	_ = Append(h, "q1", "a1", 10)
	require.Len(t, h, 2)
	assert.Equal(t, "q0", h[0].Content)
}

func TestTrimBounds(t *testing.T) {
	h := []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "q0"},
		{Role: schema.RoleAssistant, Content: "a0"},
	}
	assert.Len(t, Trim(h, 10), 2)
	assert.Len(t, Trim(h, 2), 2)
	assert.Len(t, Trim(h, 1), 1)
	assert.Nil(t, Trim(h, 0))
	assert.Nil(t, Trim(h, -3))
}

func TestBuildMessages(t *testing.T) {
	h := []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "q0"},
		{Role: schema.RoleAssistant, Content: "a0"},
	}
	messages := BuildMessages("be helpful", h, "q1")

	require.Len(t, messages, 4)
	assert.Equal(t, schema.RoleSystem, messages[0].Role)
	assert.Equal(t, "be helpful", messages[0].Content)
	assert.Equal(t, "q0", messages[1].Content)
	assert.Equal(t, "a0", messages[2].Content)
	assert.Equal(t, schema.ChatMessage{Role: schema.RoleUser, Content: "q1"}, messages[3])
}
