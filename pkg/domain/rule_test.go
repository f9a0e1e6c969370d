package domain

import (
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/answer"
	"github.com/aretw0/arbor/pkg/result"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		match  any
		op     RuleOperator
		digits int
		want   bool
	}{
		{"equal integers", 2.0, 2, OpEqual, 0, true},
		{"default operator is equal", 2.0, 2.0, "", 0, true},
		{"integer rounding", 2.4, 2, OpEqual, 0, true},
		{"decimal rounding", 0.1 + 0.2, 0.3, OpEqual, 5, true},
		{"not equal numbers", 1.0, 2.0, OpNotEqual, 5, true},
		{"less than", 1.0, 2.0, OpLessThan, 5, true},
		{"less than equal value", 2.0, 2.0, OpLessThan, 5, false},
		{"greater than", 3.0, 2.0, OpGreaterThan, 5, true},
		{"greater than rounded equal", 2.000001, 2.0, OpGreaterThan, 5, false},
		{"less or equal", 2.0, 2.0, OpLessThanEqual, 5, true},
		{"greater or equal", 1.0, 2.0, OpGreaterThanEqual, 5, false},
		{"strings equal", "Pizza", "Pizza", OpEqual, 5, true},
		{"strings not equal", "Salad", "Pizza", OpNotEqual, 5, true},
		{"strings ordered", "apple", "banana", OpLessThan, 5, true},
		{"null equals null", nil, nil, OpEqual, 5, true},
		{"null is not a number", nil, 2.0, OpEqual, 5, false},
		{"null ne number", nil, 2.0, OpNotEqual, 5, true},
		{"null never ordered", nil, 2.0, OpLessThan, 5, false},
		{"booleans", true, true, OpEqual, 5, true},
		{"booleans not ordered", true, false, OpGreaterThan, 5, false},
		{"arrays equal", []any{1.0, "a"}, []any{1, "a"}, OpEqual, 5, true},
		{"arrays not ordered", []any{1.0}, []any{2.0}, OpLessThan, 5, false},
		{"mixed kinds", "2", 2.0, OpEqual, 5, false},
		{"always", "anything", nil, OpAlways, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.value, tt.match, tt.op, tt.digits); got != tt.want {
				t.Errorf("Compare(%v, %v, %s) = %v, want %v", tt.value, tt.match, tt.op, got, tt.want)
			}
		})
	}
}

func TestSurveyRuleEvaluate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	answered := func(typ answer.Type, v any) *result.AnswerResult {
		a := result.NewAnswer("q", typ, start)
		a.Value = v
		return a
	}

	rules := []SurveyRule{
		{SkipToIdentifier: "followupQ"},
		{SkipToIdentifier: "simpleQ1", MatchingValue: 1},
		{SkipToIdentifier: "simpleQ2", MatchingValue: 2},
	}
	firstMatch := func(res result.Result) string {
		for _, rule := range rules {
			if target, ok := rule.Evaluate(res); ok {
				return target
			}
		}
		return ""
	}

	if got := firstMatch(answered(answer.Integer(), int64(2))); got != "simpleQ2" {
		t.Errorf("answer 2 skipped to %q, want simpleQ2", got)
	}
	if got := firstMatch(answered(answer.Integer(), int64(1))); got != "simpleQ1" {
		t.Errorf("answer 1 skipped to %q, want simpleQ1", got)
	}
	if got := firstMatch(answered(answer.Integer(), nil)); got != "followupQ" {
		t.Errorf("skipped answer went to %q, want followupQ", got)
	}
	if got := firstMatch(answered(answer.Integer(), int64(7))); got != "" {
		t.Errorf("answer 7 matched %q, want no match", got)
	}
	if got := firstMatch(result.NewBase("q", start)); got != "" {
		t.Errorf("non-answer result matched %q", got)
	}

	always := SurveyRule{RuleOperator: OpAlways, SkipToIdentifier: "end"}
	if target, ok := always.Evaluate(answered(answer.String(), "x")); !ok || target != "end" {
		t.Errorf("always rule = %q, %v", target, ok)
	}

	separated := SurveyRule{MatchingValue: "a-b", SkipToIdentifier: "both"}
	if _, ok := separated.Evaluate(answered(answer.Array(answer.KindString, "-"), []any{"a", "b"})); !ok {
		t.Error("separated array should compare in wire form")
	}

	dated := SurveyRule{MatchingValue: "2024-06-01", RuleOperator: OpLessThan, SkipToIdentifier: "early"}
	if _, ok := dated.Evaluate(answered(answer.DateTime("yyyy-MM-dd"), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))); !ok {
		t.Error("dates should order in wire form")
	}
}
