// Package schema loads the JSON Schema contract for each of the research
// core's tools and validates calls against it, grounded in the same
// santhosh-tekuri/jsonschema/v6 compile-then-validate shape the goa-ai pack
// repo uses for its own tool-call envelope validation.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// Registry compiles and caches one jsonschema.Schema per tool name, loaded
// once at startup from the embedded schemas/ directory.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
	raw     map[string]json.RawMessage
}

// NewRegistry compiles every embedded schemas/*.json file. The tool name is
// derived from the file's base name (schemas/get_status.json -> "get_status").
func NewRegistry() (*Registry, error) {
	entries, err := schemaFiles.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read embedded schemas: %w", err)
	}

	r := &Registry{
		schemas: make(map[string]*jsonschema.Schema, len(entries)),
		raw:     make(map[string]json.RawMessage, len(entries)),
	}

	for _, entry := range entries {
		name := entry.Name()
		tool := trimJSONSuffix(name)

		data, err := schemaFiles.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("read schema %q: %w", name, err)
		}

		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal schema %q: %w", name, err)
		}

		c := jsonschema.NewCompiler()
		resourceName := tool + ".json"
		if err := c.AddResource(resourceName, doc); err != nil {
			return nil, fmt.Errorf("add schema resource %q: %w", tool, err)
		}
		compiled, err := c.Compile(resourceName)
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", tool, err)
		}

		r.schemas[tool] = compiled
		r.raw[tool] = data
	}

	return r, nil
}

// ValidateInput validates a tool call's argument map against that tool's schema.
func (r *Registry) ValidateInput(tool string, args map[string]any) error {
	return r.validate(tool, args)
}

// ValidateOutput validates a tool's result payload against that tool's
// schema. Most tools define an input-only schema; ValidateOutput is a no-op
// for tools without a registered schema rather than a failure, since
// spec.md only mandates input validation at the dispatch boundary.
func (r *Registry) ValidateOutput(tool string, result map[string]any) error {
	r.mu.RLock()
	_, ok := r.schemas[tool]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return r.validate(tool, result)
}

func (r *Registry) validate(tool string, payload map[string]any) error {
	r.mu.RLock()
	s, ok := r.schemas[tool]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no schema registered for tool %q", tool)
	}

	// jsonschema operates on json-decoded any values, not map[string]any
	// directly interchangeable with Go struct fields, so round-trip through
	// JSON to normalize numeric types the same way a wire call would.
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload for validation: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return fmt.Errorf("decode payload for validation: %w", err)
	}

	if err := s.Validate(decoded); err != nil {
		return err
	}
	return nil
}

// Introspect returns the raw schema document for every registered tool,
// keyed by tool name, for the client introspection call.
func (r *Registry) Introspect() map[string]json.RawMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(r.raw))
	for k, v := range r.raw {
		out[k] = v
	}
	return out
}

// Tools returns the sorted list of tool names with a registered schema.
func (r *Registry) Tools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func trimJSONSuffix(name string) string {
	const suffix = ".json"
	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		return name[:len(name)-len(suffix)]
	}
	return name
}
