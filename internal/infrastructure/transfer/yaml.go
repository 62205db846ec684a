package transfer

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/buyercheck/backend/internal/domain"
)

type yamlDocument struct {
	Entities []domain.EntityInput `yaml:"entities"`
}

// WriteYAML writes inputs as a YAML document with an entities list
func WriteYAML(w io.Writer, inputs []domain.EntityInput) error {
	if inputs == nil {
		inputs = []domain.EntityInput{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlDocument{Entities: inputs}); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// ReadYAML reads the entities list of a YAML document
func ReadYAML(r io.Reader) ([]domain.EntityInput, error) {
	var doc yamlDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return []domain.EntityInput{}, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc.Entities == nil {
		return []domain.EntityInput{}, nil
	}
	return doc.Entities, nil
}
