package result

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/answer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

func sampleTree() *AssessmentResult {
	root := NewAssessment("survey", "run-1", at(0))
	root.VersionString = "1.2"

	intro := NewBase("intro", at(1))
	intro.Finish(at(2))
	root.Append(intro.Identifier, intro, Forward)

	age := NewAnswer("age", answer.Integer(), at(2))
	age.Value = int64(42)
	age.Finish(at(5))
	root.Append(age.Identifier, age, Forward)

	section := NewBranch("habits", at(5))
	food := NewAnswer("food", answer.Array(answer.KindString, ","), at(5))
	food.Value = []any{"pizza", "salad"}
	food.Finish(at(8))
	section.Append(food.Identifier, food, Forward)
	when := NewAnswer("when", answer.DateTime("yyyy-MM-dd"), at(8))
	when.Value = time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)
	section.Append(when.Identifier, when, Forward)
	section.Insert(NewBase("recorder", at(5)))
	root.Append(section.Identifier, section, Forward)

	return root
}

func TestJSONRoundTrip(t *testing.T) {
	tree := sampleTree()

	data, err := json.Marshal(tree)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, tree, got)

	var direct AssessmentResult
	require.NoError(t, json.Unmarshal(data, &direct))
	assert.Equal(t, tree, &direct)
}

func TestJSONDiscriminators(t *testing.T) {
	data, err := json.Marshal(sampleTree())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "assessment", raw["type"])
	assert.Equal(t, "run-1", raw["taskRunUUID"])

	history := raw["stepHistory"].([]any)
	require.Len(t, history, 3)
	assert.Equal(t, "base", history[0].(map[string]any)["type"])
	assert.Equal(t, "answer", history[1].(map[string]any)["type"])
	assert.Equal(t, "section", history[2].(map[string]any)["type"])

	food := history[2].(map[string]any)["stepHistory"].([]any)[0].(map[string]any)
	assert.Equal(t, "pizza,salad", food["value"])
	assert.Equal(t, map[string]any{"type": "array", "baseType": "string", "sequenceSeparator": ","}, food["answerType"])
}

func TestUnmarshalMismatchedAnswerIsDropped(t *testing.T) {
	data := []byte(`{"type":"answer","identifier":"age","startDate":"2024-05-01T09:00:00Z","answerType":{"type":"integer"},"value":"forty"}`)

	r, err := Unmarshal(data)
	require.NoError(t, err)

	a, ok := r.(*AnswerResult)
	require.True(t, ok)
	assert.Nil(t, a.Value)
	assert.Equal(t, answer.Integer(), a.AnswerType)
}

func TestJSONKeepsLargeIntegers(t *testing.T) {
	big := NewAnswer("count", answer.Integer(), at(0))
	big.Value = int64(1<<53 + 1)
	list := NewAnswer("ids", answer.Array(answer.KindInteger, ","), at(0))
	list.Value = []any{int64(math.MaxInt64), int64(1<<53 + 1)}
	loose := NewAnswer("extra", nil, at(0))
	loose.Value = map[string]any{"n": 1.5}

	for _, a := range []*AnswerResult{big, list, loose} {
		data, err := json.Marshal(a)
		require.NoError(t, err)

		got, err := Unmarshal(data)
		require.NoError(t, err, string(data))
		assert.Equal(t, a.Value, got.(*AnswerResult).Value, string(data))
	}

	data, err := json.Marshal(big)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value":9007199254740993`)
}

func TestUnmarshalErrors(t *testing.T) {
	_, err := Unmarshal([]byte(`{"type":"hologram","identifier":"x"}`))
	assert.ErrorIs(t, err, ErrUnknownResultType)

	_, err = Unmarshal([]byte(`{"type":"section","identifier":"s","path":[{"identifier":"a","direction":"forward"}]}`))
	assert.Error(t, err, "path without history must be rejected")

	var ar AssessmentResult
	err = json.Unmarshal([]byte(`{"type":"section","identifier":"s"}`), &ar)
	assert.Error(t, err)
}

func TestCollectionInsertRemove(t *testing.T) {
	c := NewCollection("c", at(0))

	assert.Nil(t, c.Insert(NewBase("a", at(1))))
	assert.Nil(t, c.Insert(NewBase("b", at(2))))

	prior := c.Insert(NewBase("a", at(3)))
	require.NotNil(t, prior)
	assert.Equal(t, at(1), prior.Common().StartDate)
	assert.Equal(t, "a", c.Children[0].Common().Identifier, "replacement keeps position")
	assert.Equal(t, at(3), c.Child("a").Common().StartDate)

	removed := c.Remove("b")
	require.NotNil(t, removed)
	assert.Nil(t, c.Remove("b"))
	assert.Nil(t, c.Child("b"))

	c.Remove("a")
	assert.Nil(t, c.Children)
}

func TestBranchPath(t *testing.T) {
	b := NewBranch("s", at(0))
	b.Append("a", NewBase("a", at(1)), Forward)
	b.Append("b", NewBase("b", at(2)), Forward)
	b.Append("a", NewBase("a", at(3)), Backward)

	assert.Equal(t, 2, b.LastIndex("a"))
	assert.Equal(t, -1, b.LastIndex("z"))
	assert.Equal(t, at(3), b.Latest("a").Common().StartDate)
	assert.Equal(t, "a", b.Last().Common().Identifier)

	removed := b.Truncate(1)
	assert.Len(t, removed, 2)
	assert.Len(t, b.PathHistory, 1)
	assert.Len(t, b.Path, 1)

	b.Truncate(0)
	assert.Nil(t, b.PathHistory)
	assert.Nil(t, b.Path)
	assert.Nil(t, b.Last())
}

func TestCloneIsDeep(t *testing.T) {
	tree := sampleTree()
	clone := tree.Clone().(*AssessmentResult)
	assert.Equal(t, tree, clone)

	section := clone.PathHistory[2].(*BranchResult)
	section.PathHistory[0].(*AnswerResult).Value.([]any)[0] = "tacos"
	section.PathHistory[1].Common().Finish(at(99))

	original := tree.PathHistory[2].(*BranchResult)
	assert.Equal(t, "pizza", original.PathHistory[0].(*AnswerResult).Value.([]any)[0])
	assert.True(t, original.PathHistory[1].Common().IsOpen())
}

func TestFindAnswer(t *testing.T) {
	tree := sampleTree()

	food, ok := FindAnswer(tree, "food")
	require.True(t, ok)
	assert.Equal(t, []any{"pizza", "salad"}, food.Value)

	newer := NewAnswer("age", answer.Integer(), at(20))
	newer.Value = int64(43)
	tree.Append(newer.Identifier, newer, Forward)

	age, ok := FindAnswer(tree, "age")
	require.True(t, ok)
	assert.Equal(t, int64(43), age.Value, "newest visit wins")

	_, ok = FindAnswer(tree, "missing")
	assert.False(t, ok)
}

func TestSetValue(t *testing.T) {
	a := NewAnswer("q", answer.Integer(), at(0))
	require.NoError(t, a.SetValue(3.0))
	assert.Equal(t, int64(3), a.Value)

	err := a.SetValue("three")
	assert.ErrorIs(t, err, answer.ErrTypeMismatch)
	assert.Nil(t, a.Value)

	untyped := NewAnswer("free", nil, at(0))
	require.NoError(t, untyped.SetValue("anything"))
	assert.Equal(t, "anything", untyped.Value)
}
