package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestToContentsMapsRoles(t *testing.T) {
	contents := toContents([]Message{
		{Role: RoleUser, Text: "Is walking enough?"},
		{Role: RoleModel, Text: "Walking is a great start."},
		{Role: "system", Text: "unexpected"},
	})

	require.Len(t, contents, 3)
	require.Equal(t, string(genai.RoleUser), contents[0].Role)
	require.Equal(t, string(genai.RoleModel), contents[1].Role)
	require.Equal(t, string(genai.RoleUser), contents[2].Role)
	require.Equal(t, "Walking is a great start.", contents[1].Parts[0].Text)
}

func TestNewGeminiClientRequiresCredentials(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{})
	require.ErrorContains(t, err, "API key")

	_, err = NewGeminiClient(context.Background(), GeminiConfig{Vertex: true, Project: "p"})
	require.ErrorContains(t, err, "project and location")
}

func TestMockClientEchoesLatestUserTurn(t *testing.T) {
	reply, err := NewMockClient().Converse(context.Background(), Request{
		System: "be kind",
		Messages: []Message{
			{Role: RoleUser, Text: "first"},
			{Role: RoleModel, Text: "answer"},
			{Role: RoleUser, Text: " chair stands? "},
		},
	})
	require.NoError(t, err)
	require.Contains(t, reply.Text, `"chair stands?"`)
	require.Equal(t, "mock", reply.Model)
	require.Positive(t, reply.Usage.CompletionTokens)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewMockClient().Converse(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
}
