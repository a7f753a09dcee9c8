package prompt

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderinc/notion-architect/internal/blueprint"
	"github.com/renderinc/notion-architect/internal/extract"
	"github.com/renderinc/notion-architect/internal/llm"
)

func TestDefaults_AreValid(t *testing.T) {
	defaults := Defaults()
	require.NotEmpty(t, defaults)

	for _, ex := range defaults {
		out, err := ex.Output()
		require.NoError(t, err)

		result, err := blueprint.Parse([]byte(out))
		require.NoError(t, err, ex.Prompt)
		assert.Equal(t, ex.Response, result.Narrative)

		// the narrative can be streamed out of the assistant turn
		e := extract.New()
		assert.Equal(t, ex.Response, e.Feed(out))
	}
}

func TestExample_Output(t *testing.T) {
	ex := Example{Prompt: "p", Response: "say \"hi\"", Blueprint: json.RawMessage("{\n  \"type\": \"page\"\n}")}
	out, err := ex.Output()
	require.NoError(t, err)
	assert.Equal(t, `{"response":"say \"hi\"","blueprint":{"type":"page"}}`, out)

	_, err = Example{Blueprint: json.RawMessage(`{`)}.Output()
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	examples := Defaults()
	msgs, err := Build("a garden journal", examples)
	require.NoError(t, err)

	require.Len(t, msgs, 2+2*len(examples))
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: examples[0].Prompt}, msgs[1])
	assert.Equal(t, llm.RoleAssistant, msgs[2].Role)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "a garden journal"}, msgs[len(msgs)-1])
}

func TestRetry(t *testing.T) {
	base, err := Build("a garden journal", nil)
	require.NoError(t, err)
	require.Len(t, base, 2)

	msgs := Retry(base, `{"response":"x"}`, `{"error":"malformed_document"}`)
	require.Len(t, msgs, 4)
	assert.Len(t, base, 2, "base is left alone")
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: `{"response":"x"}`}, msgs[2])
	assert.Equal(t, llm.RoleUser, msgs[3].Role)
	assert.Contains(t, msgs[3].Content, `{"error":"malformed_document"}`)
}

func TestStatic(t *testing.T) {
	s := Static(Defaults())
	got, err := s.Examples(context.Background(), "anything", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.Examples(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Len(t, got, len(s))
}
