package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

// GenerateSchemaJSON renders the JSON schema of the configuration document.
// Operator tooling uses it for editor completion and validation.
func GenerateSchemaJSON() (string, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}

	schema := reflector.Reflect(&Config{})

	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "cannot marshal configuration schema", err)
	}

	return string(raw), nil
}
