package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/persistence"
	"github.com/aretw0/arbor/pkg/session"
)

const survey = `
identifier: survey
type: assessment
steps:
  - identifier: color
    type: question
    answerType: string
  - identifier: count
    type: question
    answerType: integer
  - identifier: bye
    type: completion
`

func newServer(t *testing.T) *Server {
	t.Helper()
	eng, err := arbor.New("", arbor.WithLoader(memory.NewLoader(map[string]string{"survey": survey})))
	require.NoError(t, err)
	svc := arbor.NewService(eng, session.NewManager(persistence.NewCache(memory.NewStore())))
	return NewServer(svc)
}

func resultRequest(runID string) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = "get_result"
	req.Params.Arguments = map[string]any{"run_id": runID}
	return req
}

func TestServer_Tools(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	list, err := s.handleList(ctx, mcp.CallToolRequest{}, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, []string{"survey"}, list.Assessments)

	snap, err := s.handleStart(ctx, mcp.CallToolRequest{}, StartArgs{Assessment: "survey", RunID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "m1", snap.RunID)
	assert.Equal(t, "color", snap.Step.Identifier)

	snap, err = s.handleAnswer(ctx, mcp.CallToolRequest{}, AnswerArgs{RunID: "m1", Value: `"blue"`, Advance: true})
	require.NoError(t, err)
	assert.Equal(t, "count", snap.Step.Identifier)

	snap, err = s.handleBackward(ctx, mcp.CallToolRequest{}, RunArgs{RunID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "color", snap.Step.Identifier)
	assert.Equal(t, "blue", snap.Answer)

	snap, err = s.handleForward(ctx, mcp.CallToolRequest{}, RunArgs{RunID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "count", snap.Step.Identifier)

	snap, err = s.handleGet(ctx, mcp.CallToolRequest{}, RunArgs{RunID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "count", snap.Step.Identifier)

	snap, err = s.handleExit(ctx, mcp.CallToolRequest{}, ExitArgs{RunID: "m1"})
	require.NoError(t, err)
	assert.True(t, snap.Finished)
	require.NotNil(t, snap.Reason)

	res, err := s.handleResult(ctx, resultRequest("m1"))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"taskRunUUID":"m1"`)
	assert.Contains(t, text.Text, `"blue"`)
}

func TestServer_ToolErrors(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	_, err := s.handleStart(ctx, mcp.CallToolRequest{}, StartArgs{Assessment: "missing"})
	assert.Error(t, err)

	_, err = s.handleStart(ctx, mcp.CallToolRequest{}, StartArgs{Assessment: "survey", RunID: "m2"})
	require.NoError(t, err)

	_, err = s.handleAnswer(ctx, mcp.CallToolRequest{}, AnswerArgs{RunID: "m2", Value: "blue"})
	assert.ErrorContains(t, err, "value must be JSON")

	_, err = s.handleAnswer(ctx, mcp.CallToolRequest{}, AnswerArgs{RunID: "m2", Value: "12"})
	assert.Error(t, err)

	_, err = s.handleExit(ctx, mcp.CallToolRequest{}, ExitArgs{RunID: "m2", Reason: "later"})
	assert.ErrorContains(t, err, "unknown exit reason")

	res, err := s.handleResult(ctx, resultRequest("nope"))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServer_Registration(t *testing.T) {
	s := newServer(t)
	tools := s.MCPServer().ListTools()
	for _, name := range []string{"list_assessments", "start_run", "get_run", "answer", "go_forward", "go_backward", "exit_run", "get_result"} {
		assert.Contains(t, tools, name)
	}
}
