package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/grovetools/claudelogs/config"
	"github.com/grovetools/claudelogs/errors"
	"github.com/grovetools/claudelogs/pkg/transcript"
	"github.com/grovetools/claudelogs/schema"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

// schemaSources maps the `claudelogs schema` argument to its generator.
var schemaSources = map[string]func() ([]byte, error){
	"config":          config.GenerateSchema,
	"message":         func() ([]byte, error) { return schema.Load(schema.MessageStrict) },
	"message-lenient": func() ([]byte, error) { return schema.Load(schema.MessageLenient) },
	"session":         func() ([]byte, error) { return schema.Load(schema.Session) },
	"metadata":        func() ([]byte, error) { return reflectSchema(&transcript.SessionMetadata{}, "Session metadata") },
	"project":         func() ([]byte, error) { return reflectSchema(&transcript.ProjectData{}, "Project data") },
}

// SchemaNames lists the accepted `claudelogs schema` arguments.
func SchemaNames() []string {
	names := make([]string, 0, len(schemaSources))
	for name := range schemaSources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func reflectSchema(v any, title string) ([]byte, error) {
	r := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	s := r.Reflect(v)
	s.Title = title
	return json.MarshalIndent(s, "", "  ")
}

func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema <name>",
		Short:     "Print a JSON Schema used or produced by claudelogs",
		Long:      "Print a JSON Schema. Names: " + strings.Join(SchemaNames(), ", ") + ".",
		Args:      cobra.ExactArgs(1),
		ValidArgs: SchemaNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, ok := schemaSources[args[0]]
			if !ok {
				return errors.InvalidInput("schema", args[0], "expected one of "+strings.Join(SchemaNames(), ", "))
			}
			data, err := gen()
			if err != nil {
				return errors.Internal(err, "failed to generate schema")
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(data), "\n"))
			return nil
		},
	}
}
