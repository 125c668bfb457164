package storage

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/readings.schema.json
var readingsSchemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func readingsSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(readingsSchemaJSON))
	})
	return compiledSchema, schemaErr
}

// ReadingsSchema returns the embedded JSON Schema for saved documents.
func ReadingsSchema() []byte {
	out := make([]byte, len(readingsSchemaJSON))
	copy(out, readingsSchemaJSON)
	return out
}

// validateDocument checks data against schema. Malformed JSON is reported by
// gojsonschema as an error, schema violations as a joined list.
func validateDocument(schema *gojsonschema.Schema, data []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}

	const maxReported = 5
	errs := result.Errors()
	msgs := make([]string, 0, maxReported)
	for i, desc := range errs {
		if i == maxReported {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(errs)-maxReported))
			break
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("schema violation: %s", strings.Join(msgs, "; "))
}
