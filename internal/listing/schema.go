package listing

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema of a listing file: either a bare array of listings
// or an object with a "listings" array.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference:             true,
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: true,
	}
	item := r.Reflect(&Listing{})
	item.Version = ""
	item.Required = []string{"name", "lat", "lng"}

	list := &jsonschema.Schema{Type: "array", Items: item}
	envelope := &jsonschema.Schema{
		Type:       "object",
		Properties: jsonschema.NewProperties(),
		Required:   []string{"listings"},
	}
	envelope.Properties.Set("listings", list)

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "propmap listings",
		Description: "Property listings loaded into the map.",
		AnyOf:       []*jsonschema.Schema{list, envelope},
	}
}

// SchemaJSON renders Schema indented for the CLI.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(Schema(), "", "  ")
}
