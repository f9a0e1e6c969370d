package domain

import (
	"math"
	"reflect"

	"github.com/aretw0/arbor/pkg/answer"
	"github.com/aretw0/arbor/pkg/result"
)

// RuleOperator compares an answer to a rule's matching value.
type RuleOperator string

const (
	OpEqual            RuleOperator = "eq"
	OpNotEqual         RuleOperator = "ne"
	OpLessThan         RuleOperator = "lt"
	OpGreaterThan      RuleOperator = "gt"
	OpLessThanEqual    RuleOperator = "le"
	OpGreaterThanEqual RuleOperator = "ge"
	OpAlways           RuleOperator = "always"
)

// SurveyRule is a conditional skip attached to a question.
//
// With no operator the rule tests equality. A nil MatchingValue is compared
// as null, so a rule with neither matches a skipped question; use OpAlways
// for an unconditional skip.
type SurveyRule struct {
	MatchingValue    any          `json:"matchingAnswer,omitempty" mapstructure:"matchingAnswer"`
	RuleOperator     RuleOperator `json:"ruleOperator,omitempty" mapstructure:"ruleOperator"`
	SkipToIdentifier string       `json:"skipToIdentifier" mapstructure:"skipToIdentifier"`
}

// Operator returns the effective operator of the rule.
func (r SurveyRule) Operator() RuleOperator {
	if r.RuleOperator == "" {
		return OpEqual
	}
	return r.RuleOperator
}

// Evaluate returns the skip target when the rule matches the answer in res.
// Results that are not answers never match.
func (r SurveyRule) Evaluate(res result.Result) (string, bool) {
	a, ok := res.(*result.AnswerResult)
	if !ok {
		return "", false
	}
	op := r.Operator()
	if op == OpAlways {
		return r.SkipToIdentifier, true
	}

	value := a.Value
	if a.AnswerType != nil {
		raw, err := a.AnswerType.Encode(a.Value)
		if err != nil {
			return "", false
		}
		value = raw
	}
	if Compare(value, r.MatchingValue, op, answer.SignificantDigits(a.AnswerType)) {
		return r.SkipToIdentifier, true
	}
	return "", false
}

// Compare applies op to an answer and a matching value, both in their generic
// structured form. Numbers are compared after rounding to digits decimal places.
// Ordering is only defined between two numbers or two strings.
func Compare(value, match any, op RuleOperator, digits int) bool {
	if op == OpAlways {
		return true
	}
	if value == nil || match == nil {
		isEqual := value == nil && match == nil
		switch op {
		case OpEqual, "":
			return isEqual
		case OpNotEqual:
			return !isEqual
		default:
			return false
		}
	}

	if lhs, ok := answer.AsFloat(value); ok {
		if rhs, ok := answer.AsFloat(match); ok {
			scale := math.Pow(10, float64(digits))
			isEqual := math.Round(lhs*scale) == math.Round(rhs*scale)
			return ordered(op, isEqual, lhs < rhs)
		}
	}

	if lhs, ok := value.(string); ok {
		if rhs, ok := match.(string); ok {
			return ordered(op, lhs == rhs, lhs < rhs)
		}
	}

	isEqual := reflect.DeepEqual(normalize(value), normalize(match))
	switch op {
	case OpEqual, "":
		return isEqual
	case OpNotEqual:
		return !isEqual
	default:
		return false
	}
}

func ordered(op RuleOperator, isEqual, isLess bool) bool {
	switch op {
	case OpEqual, "":
		return isEqual
	case OpNotEqual:
		return !isEqual
	case OpLessThan:
		return !isEqual && isLess
	case OpGreaterThan:
		return !isEqual && !isLess
	case OpLessThanEqual:
		return isEqual || isLess
	case OpGreaterThanEqual:
		return isEqual || !isLess
	default:
		return false
	}
}

// normalize converts numbers to float64 so values decoded from YAML and JSON compare equal.
func normalize(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	}
	if f, ok := answer.AsFloat(v); ok {
		return f
	}
	return v
}
