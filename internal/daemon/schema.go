package daemon

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaBaseURL = "https://docflow.schemas.local/api/"

const createRequestSchema = `{
  "type": "object",
  "required": ["author", "title", "initiator"],
  "properties": {
    "author": {"type": "string", "minLength": 1, "pattern": "\\S"},
    "title": {"type": "string", "minLength": 1, "pattern": "\\S"},
    "initiator": {"type": "string", "minLength": 1, "pattern": "\\S"}
  }
}`

const batchRequestSchema = `{
  "type": "object",
  "required": ["ids", "initiator"],
  "properties": {
    "ids": {
      "type": "array",
      "minItems": 1,
      "maxItems": %d,
      "items": {"type": "integer", "minimum": 1}
    },
    "initiator": {"type": "string", "minLength": 1, "pattern": "\\S"}
  }
}`

const raceRequestSchema = `{
  "type": "object",
  "required": ["documentId", "threads", "attempts"],
  "properties": {
    "documentId": {"type": "integer", "minimum": 1},
    "threads": {"type": "integer", "minimum": 1, "maximum": 50},
    "attempts": {"type": "integer", "minimum": 1, "maximum": 100}
  }
}`

// requestSchemas holds the compiled body schemas for the write endpoints.
type requestSchemas struct {
	create *jsonschema.Schema
	batch  *jsonschema.Schema
	race   *jsonschema.Schema
}

func compileRequestSchemas(maxBatchIDs int) (*requestSchemas, error) {
	if maxBatchIDs <= 0 {
		maxBatchIDs = 1000
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	sources := map[string]string{
		"create.schema.json": createRequestSchema,
		"batch.schema.json":  fmt.Sprintf(batchRequestSchema, maxBatchIDs),
		"race.schema.json":   raceRequestSchema,
	}
	for name, src := range sources {
		if err := c.AddResource(schemaBaseURL+name, strings.NewReader(src)); err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}

	compiled := make(map[string]*jsonschema.Schema, len(sources))
	for name := range sources {
		schema, err := c.Compile(schemaBaseURL + name)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", name, err)
		}
		compiled[name] = schema
	}
	return &requestSchemas{
		create: compiled["create.schema.json"],
		batch:  compiled["batch.schema.json"],
		race:   compiled["race.schema.json"],
	}, nil
}

// decodeValidated checks body against schema and then decodes it into dst.
func decodeValidated(body []byte, schema *jsonschema.Schema, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return errors.New(validationMessage(err))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// validationMessage flattens a schema error into field level messages.
func validationMessage(err error) string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	var leaves []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := strings.TrimPrefix(e.InstanceLocation, "/")
			if loc == "" {
				loc = "body"
			}
			leaves = append(leaves, loc+": "+e.Message)
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return strings.Join(leaves, "; ")
}
