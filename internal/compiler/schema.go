package compiler

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/assessment.schema.json
var assessmentSchema []byte

const schemaURL = "https://arbor.local/schemas/assessment.schema.json"

// Schema returns the embedded JSON Schema for assessment definitions.
func Schema() []byte {
	return assessmentSchema
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, bytes.NewReader(assessmentSchema)); err != nil {
		return nil, fmt.Errorf("assessment schema load failed: %w", err)
	}
	return c.Compile(schemaURL)
})

// checkSchema validates a normalized document against the embedded schema.
func checkSchema(doc any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	err = schema.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	var errs []error
	for _, be := range ve.BasicOutput().Errors {
		if be.Error == "" || be.KeywordLocation == "" {
			continue
		}
		errs = append(errs, &domain.ValidationError{
			Path:   "#" + be.InstanceLocation,
			Reason: be.Error,
		})
	}
	if len(errs) == 0 {
		errs = append(errs, &domain.ValidationError{Path: "#", Reason: ve.Error()})
	}
	return &domain.AggregateError{Errors: errs}
}
