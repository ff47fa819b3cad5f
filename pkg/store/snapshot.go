package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbuilder/pkg/model"
)

// WriteSchemaFile serializes a schema snapshot to path. The extension picks
// the format: .yaml/.yml for YAML, anything else JSON.
func WriteSchemaFile(path string, schema model.FormSchema) error {
	var (
		payload []byte
		err     error
	)
	if isYAMLPath(path) {
		payload, err = yaml.Marshal(schema)
	} else {
		payload, err = json.MarshalIndent(schema, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("store: encode schema snapshot: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("store: write schema snapshot: %w", err)
	}
	return nil
}

// ReadSchemaFile loads a schema snapshot written by WriteSchemaFile.
func ReadSchemaFile(path string) (model.FormSchema, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return model.FormSchema{}, fmt.Errorf("store: read schema snapshot: %w", err)
	}

	var schema model.FormSchema
	if isYAMLPath(path) {
		err = yaml.Unmarshal(payload, &schema)
	} else {
		err = json.Unmarshal(payload, &schema)
	}
	if err != nil {
		return model.FormSchema{}, fmt.Errorf("store: decode schema snapshot: %w", err)
	}
	return schema, nil
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
