package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Request body schemas.
const (
	schemaToyCreate = "toy_create.json"
	schemaPoint     = "point.json"
	schemaSpeed     = "speed.json"
)

// schemaBase names the embedded schemas so they never resolve to the
// filesystem or network.
const schemaBase = "https://kitten-world.local/schemas/"

// maxBody caps admin request bodies.
const maxBody = 16 << 10

type schemas map[string]*jsonschema.Schema

func compileSchemas() (schemas, error) {
	c := jsonschema.NewCompiler()
	names := []string{schemaToyCreate, schemaPoint, schemaSpeed}
	for _, name := range names {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBase+name, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}
	out := make(schemas, len(names))
	for _, name := range names {
		s, err := c.Compile(schemaBase + name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

// decode validates body against a schema and then unmarshals it into dst.
func (sc schemas) decode(name string, body io.Reader, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(body, maxBody))
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := sc[name].Validate(doc); err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
