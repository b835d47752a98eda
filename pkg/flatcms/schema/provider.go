// Package schema provides the schema provider collaborator: per-type field
// definitions loaded from JSON documents on disk, with an explicitly
// reloadable cache and structural validation of candidate records.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/flatcms/flatcms/pkg/flatcms"
)

// ErrSchemaNotFound indicates no schema document exists for a content type.
var ErrSchemaNotFound = errors.New("schema not found")

// Field kinds accepted in schema documents.
const (
	KindString  = "string"
	KindNumber  = "number"
	KindBoolean = "boolean"
	KindList    = "list"
	KindObject  = "object"
)

// FieldDef describes one schema-defined field of a content type.
type FieldDef struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Unique   bool   `json:"unique"`
}

// Definition is the full schema for a content type.
type Definition struct {
	Name   string     `json:"name"`
	Fields []FieldDef `json:"fields"`
}

// FieldError describes one structural validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult is the pass/fail outcome of structural validation plus
// its error descriptors.
type ValidationResult struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// Provider loads type definitions from <dir>/<type>.json, caching each
// lazily. The cache is explicit state owned by the caller: invalidate or
// reload it deliberately, there is no hidden process-wide singleton.
type Provider struct {
	dir   string
	mu    sync.RWMutex
	cache map[string]*Definition
}

// NewProvider creates a provider reading schema documents from dir.
func NewProvider(dir string) *Provider {
	return &Provider{
		dir:   dir,
		cache: make(map[string]*Definition),
	}
}

// Definition returns the schema for a content type, loading and caching it
// on first use. Returns ErrSchemaNotFound when no document exists.
func (p *Provider) Definition(contentType string) (*Definition, error) {
	p.mu.RLock()
	def, ok := p.cache[contentType]
	p.mu.RUnlock()
	if ok {
		return def, nil
	}

	path := filepath.Join(p.dir, contentType+".json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrSchemaNotFound
	} else if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}

	def = &Definition{}
	if err := json.Unmarshal(data, def); err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", path, err)
	}
	if def.Name == "" {
		def.Name = contentType
	}

	p.mu.Lock()
	p.cache[contentType] = def
	p.mu.Unlock()
	return def, nil
}

// UniqueFields returns the names of fields flagged unique for the type. A
// type without a schema document has no unique fields.
func (p *Provider) UniqueFields(contentType string) ([]string, error) {
	def, err := p.Definition(contentType)
	if errors.Is(err, ErrSchemaNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var fields []string
	for _, f := range def.Fields {
		if f.Unique {
			fields = append(fields, f.Name)
		}
	}
	return fields, nil
}

// RequiredFields returns the names of fields flagged required for the type.
func (p *Provider) RequiredFields(contentType string) ([]string, error) {
	def, err := p.Definition(contentType)
	if errors.Is(err, ErrSchemaNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var fields []string
	for _, f := range def.Fields {
		if f.Required {
			fields = append(fields, f.Name)
		}
	}
	return fields, nil
}

// Invalidate drops the cached definition for one content type.
func (p *Provider) Invalidate(contentType string) {
	p.mu.Lock()
	delete(p.cache, contentType)
	p.mu.Unlock()
}

// Reload drops the entire cache; definitions reload lazily on next use.
func (p *Provider) Reload() {
	p.mu.Lock()
	p.cache = make(map[string]*Definition)
	p.mu.Unlock()
}

// Validate structurally checks candidate fields against the type's schema:
// required fields must be present and non-null, and present values must
// match their declared kind. A type without a schema validates trivially.
func (p *Provider) Validate(contentType string, fields flatcms.Fields) (*ValidationResult, error) {
	result := &ValidationResult{Valid: true}

	def, err := p.Definition(contentType)
	if errors.Is(err, ErrSchemaNotFound) {
		return result, nil
	} else if err != nil {
		return nil, err
	}

	for _, f := range def.Fields {
		value, present := fields[f.Name]
		if !present || value == nil {
			if f.Required {
				result.Valid = false
				result.Errors = append(result.Errors, FieldError{
					Field:   f.Name,
					Message: fmt.Sprintf("field %q is required", f.Name),
				})
			}
			continue
		}
		if f.Type != "" && !kindMatches(f.Type, value) {
			result.Valid = false
			result.Errors = append(result.Errors, FieldError{
				Field:   f.Name,
				Message: fmt.Sprintf("field %q must be of type %s", f.Name, f.Type),
			})
		}
	}

	return result, nil
}

func kindMatches(declared string, value any) bool {
	switch declared {
	case KindString:
		_, ok := value.(string)
		return ok
	case KindNumber:
		switch value.(type) {
		case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		}
		return false
	case KindBoolean:
		_, ok := value.(bool)
		return ok
	case KindList:
		_, ok := value.([]any)
		return ok
	case KindObject:
		switch value.(type) {
		case map[string]any, flatcms.Fields:
			return true
		}
		return false
	}
	// Unknown declared kinds are not enforced.
	return true
}
