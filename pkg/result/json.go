package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/arbor/pkg/answer"
)

// ErrUnknownResultType is returned when decoding a result with an unsupported discriminator.
var ErrUnknownResultType = errors.New("unknown result type")

type wire struct {
	Type                 string            `json:"type"`
	Identifier           string            `json:"identifier"`
	StartDate            time.Time         `json:"startDate"`
	EndDate              *time.Time        `json:"endDate,omitempty"`
	AnswerType           map[string]any    `json:"answerType,omitempty"`
	Value                any               `json:"value,omitempty"`
	Children             []json.RawMessage `json:"children,omitempty"`
	AsyncResults         []json.RawMessage `json:"asyncResults,omitempty"`
	StepHistory          []json.RawMessage `json:"stepHistory,omitempty"`
	Path                 []PathMarker      `json:"path,omitempty"`
	RunID                string            `json:"taskRunUUID,omitempty"`
	VersionString        string            `json:"versionString,omitempty"`
	AssessmentIdentifier string            `json:"assessmentIdentifier,omitempty"`
}

func (b *Base) wire(typeName string) wire {
	return wire{Type: typeName, Identifier: b.Identifier, StartDate: b.StartDate, EndDate: b.EndDate}
}

func (b *Base) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.wire(TypeBase))
}

func (a *AnswerResult) MarshalJSON() ([]byte, error) {
	w := a.Base.wire(TypeAnswer)
	w.AnswerType = answer.ToMap(a.AnswerType)
	if a.AnswerType == nil {
		w.Value = a.Value
	} else {
		raw, err := a.AnswerType.Encode(a.Value)
		if err != nil {
			return nil, fmt.Errorf("answer %s: %w", a.Identifier, err)
		}
		w.Value = raw
	}
	return json.Marshal(w)
}

func (c *CollectionResult) MarshalJSON() ([]byte, error) {
	w := c.Base.wire(TypeCollection)
	children, err := marshalAll(c.Children)
	if err != nil {
		return nil, err
	}
	w.Children = children
	return json.Marshal(w)
}

func (b *BranchResult) branchWire(typeName string) (wire, error) {
	w := b.Base.wire(typeName)
	var err error
	if w.AsyncResults, err = marshalAll(b.Children); err != nil {
		return w, err
	}
	if w.StepHistory, err = marshalAll(b.PathHistory); err != nil {
		return w, err
	}
	w.Path = b.Path
	return w, nil
}

func (b *BranchResult) MarshalJSON() ([]byte, error) {
	w, err := b.branchWire(TypeSection)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func (a *AssessmentResult) MarshalJSON() ([]byte, error) {
	w, err := a.branchWire(TypeAssessment)
	if err != nil {
		return nil, err
	}
	w.RunID = a.RunID
	w.VersionString = a.VersionString
	w.AssessmentIdentifier = a.AssessmentIdentifier
	return json.Marshal(w)
}

// UnmarshalJSON decodes an assessment result written by MarshalJSON.
func (a *AssessmentResult) UnmarshalJSON(data []byte) error {
	r, err := Unmarshal(data)
	if err != nil {
		return err
	}
	ar, ok := r.(*AssessmentResult)
	if !ok {
		return fmt.Errorf("expected %s result, got %s", TypeAssessment, r.TypeName())
	}
	*a = *ar
	return nil
}

// Unmarshal decodes any result written by its MarshalJSON method.
// An answer value that does not match its declared type is dropped, leaving
// the question unanswered. Numbers are decoded exactly, so integer answers
// keep their full int64 range.
func Unmarshal(data []byte) (Result, error) {
	var w wire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	base := Base{Identifier: w.Identifier, StartDate: w.StartDate, EndDate: w.EndDate}

	switch w.Type {
	case TypeBase, "":
		return &base, nil

	case TypeAnswer:
		typ, err := answer.FromMap(mapOrNil(w.AnswerType))
		if err != nil {
			return nil, fmt.Errorf("answer %s: %w", w.Identifier, err)
		}
		a := &AnswerResult{Base: base, AnswerType: typ}
		value := w.Value
		if typ == nil {
			value = answer.PlainNumbers(value)
		}
		if err := a.SetValue(value); err != nil && !errors.Is(err, answer.ErrTypeMismatch) {
			return nil, fmt.Errorf("answer %s: %w", w.Identifier, err)
		}
		return a, nil

	case TypeCollection:
		children, err := unmarshalAll(w.Children)
		if err != nil {
			return nil, err
		}
		return &CollectionResult{Base: base, Children: children}, nil

	case TypeSection, TypeAssessment:
		branch, err := unmarshalBranch(base, w)
		if err != nil {
			return nil, err
		}
		if w.Type == TypeSection {
			return branch, nil
		}
		return &AssessmentResult{
			BranchResult:         *branch,
			RunID:                w.RunID,
			VersionString:        w.VersionString,
			AssessmentIdentifier: w.AssessmentIdentifier,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownResultType, w.Type)
	}
}

func unmarshalBranch(base Base, w wire) (*BranchResult, error) {
	children, err := unmarshalAll(w.AsyncResults)
	if err != nil {
		return nil, err
	}
	history, err := unmarshalAll(w.StepHistory)
	if err != nil {
		return nil, err
	}
	if len(history) != len(w.Path) {
		return nil, fmt.Errorf("section %s: %d history entries for %d path markers", w.Identifier, len(history), len(w.Path))
	}
	b := &BranchResult{
		CollectionResult: CollectionResult{Base: base, Children: children},
		PathHistory:      history,
	}
	if len(w.Path) > 0 {
		b.Path = w.Path
	}
	return b, nil
}

func marshalAll(results []Result) ([]json.RawMessage, error) {
	if len(results) == 0 {
		return nil, nil
	}
	out := make([]json.RawMessage, len(results))
	for i, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return out, nil
}

func unmarshalAll(raws []json.RawMessage) ([]Result, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	out := make([]Result, len(raws))
	for i, raw := range raws {
		r, err := Unmarshal(raw)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func mapOrNil(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}
