package extract

import "fmt"

// Registry maps file extensions to extractors.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry returns a registry with all built-in extractors registered.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}

	builtins := []Extractor{
		&PDFExtractor{},
		&CSVExtractor{},
		&TextExtractor{},
		&DOCXExtractor{},
		&XLSXExtractor{},
		&LegacyDocExtractor{},
	}
	for _, e := range builtins {
		for _, f := range e.Formats() {
			r.extractors[f] = e
		}
	}
	return r
}

// Get returns the extractor for a format (lowercase extension, no dot).
func (r *Registry) Get(format string) (Extractor, error) {
	e, ok := r.extractors[format]
	if !ok {
		return nil, fmt.Errorf("no extractor for format: %s", format)
	}
	return e, nil
}

// Register adds or replaces the extractor for a format.
func (r *Registry) Register(format string, e Extractor) {
	r.extractors[format] = e
}
