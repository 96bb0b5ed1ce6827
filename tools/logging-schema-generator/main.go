// Command logging-schema-generator writes the schema of the "logging"
// section of config.yml.
package main

import (
	"encoding/json"
	"log"
	"os"

	"github.com/grovetools/claudelogs/logging"
	"github.com/invopop/jsonschema"
)

func main() {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	schema := r.Reflect(&logging.Config{})
	schema.Title = "claudelogs Logging Configuration"
	schema.Description = "Schema for the 'logging' section of claudelogs config.yml."
	// Every logging key is optional.
	schema.Required = nil

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("Error marshaling schema: %v", err)
	}
	if err := os.WriteFile("logging.schema.json", append(data, '\n'), 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}
	log.Printf("Generated logging schema at logging.schema.json")
}
