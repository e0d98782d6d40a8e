package main

import (
	"encoding/json"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/salesmind/salesmind/pkg/config"
)

// SchemaCmd generates JSON Schema for the YAML config file. Output goes to
// stdout so it can be redirected into editor tooling.
type SchemaCmd struct {
	Compact bool `help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "salesmind configuration"
	schema.Description = "Configuration schema for the salesmind service"

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(schema)
}
