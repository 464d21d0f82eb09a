package table

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode parses JSON or YAML input into a Source, keeping sheet order and
// key order. format is "json", "yaml" or "yml".
//
// A top-level object maps sheet names to row lists; a top-level array is a
// single sheet. Rows that are not objects are kept as-is so Build can report
// them as a ShapeError.
func Decode(data []byte, format string) (Source, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		return DecodeJSON(data)
	case "yaml", "yml":
		return DecodeYAML(data)
	default:
		return Source{}, fmt.Errorf("unsupported input format %q — expected json or yaml", format)
	}
}

// DecodeJSON parses JSON input. Numbers are kept as json.Number.
func DecodeJSON(data []byte) (Source, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSONValue(dec)
	if err != nil {
		return Source{}, fmt.Errorf("invalid JSON data: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Source{}, fmt.Errorf("invalid JSON data: unexpected trailing content")
	}
	return sourceFrom(v)
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		rec := NewRecord()
		for dec.More() {
			ktok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := ktok.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v is not a string", ktok)
			}
			val, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			rec.Set(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return rec, nil
	case '[':
		list := []any{}
		for dec.More() {
			val, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// DecodeYAML parses YAML input.
func DecodeYAML(data []byte) (Source, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Source{}, fmt.Errorf("invalid YAML data: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return Source{}, fmt.Errorf("invalid YAML data: empty document")
	}

	v, err := convertYAML(doc.Content[0])
	if err != nil {
		return Source{}, fmt.Errorf("invalid YAML data: %w", err)
	}
	return sourceFrom(v)
}

func convertYAML(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.MappingNode:
		rec := NewRecord()
		for i := 0; i+1 < len(n.Content); i += 2 {
			val, err := convertYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			rec.Set(n.Content[i].Value, val)
		}
		return rec, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := convertYAML(c)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		return list, nil
	case yaml.AliasNode:
		return convertYAML(n.Alias)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported node", n.Line)
	}
}

func sourceFrom(v any) (Source, error) {
	switch x := v.(type) {
	case []any:
		return FromRows(x), nil
	case *Record:
		src := Source{Sheets: make([]SheetSource, 0, x.Len())}
		for _, name := range x.keys {
			rows, ok := x.values[name].([]any)
			if !ok {
				return Source{}, &ShapeError{Sheet: name, Row: -1, Got: describe(x.values[name])}
			}
			src.Sheets = append(src.Sheets, SheetSource{Name: name, Rows: rows})
		}
		return src, nil
	default:
		return Source{}, fmt.Errorf("top-level value must be an object of sheets or an array of rows, got %s", describe(v))
	}
}
