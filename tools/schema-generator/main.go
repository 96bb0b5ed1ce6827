// Command schema-generator writes the config file schema to
// claudelogs.schema.json so editors can validate config.yml.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/claudelogs/config"
)

func main() {
	out := flag.String("out", "claudelogs.schema.json", "output path")
	flag.Parse()

	schemaBytes, err := config.GenerateSchema()
	if err != nil {
		log.Fatalf("Error generating schema: %v", err)
	}

	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Error creating schema directory: %v", err)
		}
	}
	if err := os.WriteFile(*out, append(schemaBytes, '\n'), 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}

	log.Printf("Generated config schema at %s", *out)
}
