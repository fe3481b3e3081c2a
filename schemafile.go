package structdef

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// fieldEntry is one entry of a YAML schema file.
type fieldEntry struct {
	ID         int       `yaml:"id"`
	Name       string    `yaml:"name"`
	Type       FieldType `yaml:"type"`
	Default    any       `yaml:"default,omitempty"`
	Required   bool      `yaml:"required,omitempty"`
	Compressed bool      `yaml:"compressed,omitempty"`
	Single     bool      `yaml:"single,omitempty"`
	MaxLen     int       `yaml:"maxLen,omitempty"`
	Deprecated bool      `yaml:"deprecated,omitempty"`
}

type schemaDoc struct {
	Fields []fieldEntry `yaml:"fields"`
}

// ParseSchemaYAML reads a schema document:
//
//	fields:
//	  - {id: 1, name: name, type: string, required: true, maxLen: 32}
//	  - {id: 2, name: spawn, type: CFrame, single: true}
//	  - {id: 3, name: coins, type: int53, default: 0}
func ParseSchemaYAML(r io.Reader) (*Schema, error) {
	var doc schemaDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	s := NewSchema()
	for _, f := range doc.Fields {
		var opts []FieldOption
		if f.Default != nil {
			opts = append(opts, WithDefault(f.Default))
		}
		if f.Required {
			opts = append(opts, Required())
		}
		if f.Compressed {
			opts = append(opts, Compressed())
		}
		if f.Single {
			opts = append(opts, SinglePrecision())
		}
		if f.MaxLen != 0 {
			opts = append(opts, MaxLen(f.MaxLen))
		}
		if f.Deprecated {
			opts = append(opts, Deprecated())
		}
		s.Field(f.ID, f.Name, f.Type, opts...)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func LoadSchemaFile(path string) (*Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseSchemaYAML(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// MarshalYAML writes the schema in the form ParseSchemaYAML reads.
func (s *Schema) MarshalYAML() (any, error) {
	doc := schemaDoc{Fields: make([]fieldEntry, 0, len(s.fields))}
	for _, f := range s.fields {
		doc.Fields = append(doc.Fields, fieldEntry{
			ID:         f.ID,
			Name:       f.Name,
			Type:       f.Type,
			Default:    f.Default,
			Required:   f.Required,
			Compressed: f.Compressed,
			Single:     f.Single,
			MaxLen:     f.MaxLen,
			Deprecated: f.Deprecated,
		})
	}
	return doc, nil
}
