package compiler

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Parser converts raw YAML or JSON definitions into an assessment tree.
type Parser struct {
	logger     *slog.Logger
	skipSchema bool
}

// Option configures the Parser.
type Option func(*Parser)

// WithLogger sets the logger used to report tolerated oddities.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithoutSchema disables the JSON Schema check. Structural decoding errors are still reported.
func WithoutSchema() Option {
	return func(p *Parser) {
		p.skipSchema = true
	}
}

// NewParser creates a new parser instance.
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse decodes data into an assessment. JSON is accepted as a subset of YAML.
// Problems are reported as a *domain.AggregateError of *domain.ValidationError.
func (p *Parser) Parse(data []byte) (*domain.Assessment, error) {
	// 1. Generic decode
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	doc, err := normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}

	// 2. Schema check
	if !p.skipSchema {
		if err := checkSchema(doc); err != nil {
			return nil, err
		}
	}

	// 3. Typed decode
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to parse definition: expected an object, got %T", doc)
	}
	d := &decoder{logger: p.logger}
	node := d.node(root, "")
	if len(d.errs) > 0 {
		return nil, &domain.AggregateError{Errors: d.errs}
	}

	assessment, ok := node.(*domain.Assessment)
	if !ok {
		return nil, &domain.ValidationError{
			Path:   node.Common().Identifier,
			Reason: fmt.Sprintf("root must be an assessment, got %s", node.TypeName()),
			Err:    domain.ErrUnknownNodeType,
		}
	}
	return assessment, nil
}

// normalize converts YAML output into JSON-compatible values:
// string-keyed maps, []any and float64 numbers.
func normalize(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", k)
			}
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[key] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	default:
		return v, nil
	}
}
