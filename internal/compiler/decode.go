package compiler

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor/pkg/answer"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// typeAliases maps accepted spellings onto canonical node types.
var typeAliases = map[string]string{
	"step":     string(domain.StepInstruction),
	"question": string(domain.QuestionSimple),
	"choice":   string(domain.QuestionChoice),
	"text":     string(domain.QuestionText),
}

// keyAliases maps legacy field names onto the current ones.
var keyAliases = map[string]string{
	"steps":             "children",
	"shouldHideActions": "hiddenButtons",
	"actions":           "buttonOverrides",
}

// operatorAliases maps long operator names onto domain.RuleOperator values.
var operatorAliases = map[string]domain.RuleOperator{
	"equal":            domain.OpEqual,
	"notEqual":         domain.OpNotEqual,
	"lessThan":         domain.OpLessThan,
	"greaterThan":      domain.OpGreaterThan,
	"lessOrEqual":      domain.OpLessThanEqual,
	"lessThanEqual":    domain.OpLessThanEqual,
	"greaterOrEqual":   domain.OpGreaterThanEqual,
	"greaterThanEqual": domain.OpGreaterThanEqual,
}

type decoder struct {
	logger *slog.Logger
	errs   []error
}

func (d *decoder) fail(path, reason string, err error) {
	d.errs = append(d.errs, &domain.ValidationError{Path: path, Reason: reason, Err: err})
}

func join(parent, id string) string {
	if parent == "" {
		return id
	}
	return parent + "/" + id
}

// node decodes one node and its subtree. It returns nil after recording an error.
func (d *decoder) node(m map[string]any, parent string) domain.Node {
	for from, to := range keyAliases {
		if v, ok := m[from]; ok {
			if _, taken := m[to]; !taken {
				m[to] = v
			}
			delete(m, from)
		}
	}

	id, _ := m["identifier"].(string)
	path := join(parent, id)
	typ, _ := m["type"].(string)
	if canonical, ok := typeAliases[typ]; ok {
		typ = canonical
		m["type"] = typ
	}

	var n domain.Node
	switch typ {
	case string(domain.StepInstruction), string(domain.StepOverview), string(domain.StepCompletion), string(domain.StepPermission):
		n = d.step(m, path)
	case string(domain.QuestionSimple), string(domain.QuestionChoice), string(domain.QuestionText):
		n = d.question(m, path)
	case domain.TypeSection:
		s := &domain.Section{}
		if d.decode(m, s, path) {
			s.Children = d.children(m, path)
			n = s
		}
	case domain.TypeAssessment:
		a := &domain.Assessment{Interruption: domain.DefaultInterruptionHandling()}
		if d.decode(m, a, path) {
			a.Children = d.children(m, path)
			n = a
		}
	default:
		d.fail(path, fmt.Sprintf("unknown node type %q", typ), domain.ErrUnknownNodeType)
	}
	return n
}

func (d *decoder) children(m map[string]any, path string) []domain.Node {
	raw, _ := m["children"].([]any)
	out := make([]domain.Node, 0, len(raw))
	for i, item := range raw {
		cm, ok := item.(map[string]any)
		if !ok {
			d.fail(fmt.Sprintf("%s[%d]", path, i), "child must be an object", nil)
			continue
		}
		if child := d.node(cm, path); child != nil {
			out = append(out, child)
		}
	}
	return out
}

func (d *decoder) step(m map[string]any, path string) domain.Node {
	s := &domain.Step{}
	if !d.decode(m, s, path) {
		return nil
	}
	if len(s.Permissions) > 0 && s.StepType != domain.StepPermission {
		d.logger.Warn("ignoring permissions on non-permission step", "node", path)
		s.Permissions = nil
	}
	return s
}

func (d *decoder) question(m map[string]any, path string) domain.Node {
	if rules, ok := m["surveyRules"].([]any); ok {
		for _, r := range rules {
			rm, ok := r.(map[string]any)
			if !ok {
				continue
			}
			if v, ok := rm["matchingValue"]; ok {
				if _, taken := rm["matchingAnswer"]; !taken {
					rm["matchingAnswer"] = v
				}
			}
			if op, ok := rm["ruleOperator"].(string); ok {
				if canonical, ok := operatorAliases[op]; ok {
					rm["ruleOperator"] = string(canonical)
				}
			}
		}
	}

	q := &domain.Question{}
	if !d.decode(m, q, path) {
		return nil
	}

	typ, err := answer.FromMap(m["answerType"])
	if err != nil {
		d.fail(path, err.Error(), answer.ErrTypeMismatch)
		return nil
	}
	if typ == nil && q.QuestionType == domain.QuestionText {
		typ = answer.String()
	}
	q.AnswerType = typ

	for i, rule := range q.SurveyRules {
		if rule.MatchingValue == nil || typ == nil {
			continue
		}
		// Matching values are written in the answer's raw form.
		if _, err := typ.Decode(rule.MatchingValue); err != nil {
			d.fail(fmt.Sprintf("%s/surveyRules[%d]", path, i), err.Error(), err)
		}
	}
	return q
}

// decode fills target from m with mapstructure.
func (d *decoder) decode(m map[string]any, target any, path string) bool {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "mapstructure",
	})
	if err != nil {
		d.fail(path, err.Error(), nil)
		return false
	}
	if err := dec.Decode(m); err != nil {
		d.fail(path, err.Error(), nil)
		return false
	}
	return true
}
