// Command vfinder-schema writes the JSON schema of the vfinder configuration
// file, for editor completion and CI validation of deployment configs.
//
//	vfinder-schema [-o config.schema.json]
//	vfinder-schema -o -          # stdout
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/marmos91/vfinder/pkg/config"
)

var durationType = reflect.TypeOf(time.Duration(0))

func main() {
	output := flag.String("o", "config.schema.json", "Output file, - for stdout")
	flag.Parse()
	if flag.NArg() > 0 {
		*output = flag.Arg(0)
	}

	data, err := generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}

	if *output == "-" {
		_, _ = os.Stdout.Write(data)
		return
	}

	if err := os.WriteFile(*output, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("JSON schema written to %s\n", *output)
}

// generate reflects config.Config into an indented JSON schema.
func generate() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "mapstructure",
		// Durations are written "30s" in the file, not as nanoseconds
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == durationType {
				return &jsonschema.Schema{
					Type:    "string",
					Pattern: `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
				}
			}
			return nil
		},
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "vfinder Configuration"
	schema.Description = "Configuration of the vfinder file manager backend"

	setEnum(schema, []any{"local", "memory", "s3", "badger"}, "storages", "[]", "type")
	setEnum(schema, []any{"DEBUG", "INFO", "WARN", "ERROR", "debug", "info", "warn", "error"}, "logging", "level")
	setEnum(schema, []any{"text", "json"}, "logging", "format")

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// setEnum restricts the property reached by path, "[]" stepping into array
// items. Missing properties are ignored.
func setEnum(s *jsonschema.Schema, values []any, path ...string) {
	for _, p := range path {
		if s == nil {
			return
		}
		if p == "[]" {
			s = s.Items
			continue
		}
		if s.Properties == nil {
			return
		}
		next, ok := s.Properties.Get(p)
		if !ok {
			return
		}
		s = next
	}
	if s != nil {
		s.Enum = values
	}
}
