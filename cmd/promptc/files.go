package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/merge"
)

// readFile reads path, or stdin for "-".
func readFile(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// readTree decodes a YAML or JSON object. JSON is valid YAML, so one decoder
// serves both.
func readTree(path string, stdin io.Reader) (domain.RawLogic, error) {
	if path == "" {
		return nil, nil
	}
	data, err := readFile(path, stdin)
	if err != nil {
		return nil, err
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if v == nil {
		return domain.RawLogic{}, nil
	}
	tree, ok := merge.Normalize(v).(merge.Tree)
	if !ok {
		return nil, fmt.Errorf("%s: top level must be an object", path)
	}
	return tree, nil
}

// readInto decodes a YAML or JSON file into out through its JSON form.
func readInto(path string, stdin io.Reader, out any) error {
	tree, err := readTree(path, stdin)
	if err != nil || tree == nil {
		return err
	}
	return merge.Decode(tree, out)
}

func readText(path string, stdin io.Reader) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := readFile(path, stdin)
	return string(data), err
}

// writeValue prints v as indented JSON or as YAML.
func writeValue(w io.Writer, format string, v any) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// Round-trip through JSON so struct json tags name the keys.
		tree, err := merge.ToTree(v)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(tree)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
