package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/seed"
	"github.com/Ramsey-B/clover/pkg/validation"
)

type PricingSchema struct{}

func NewPricingSchema() *PricingSchema {
	return &PricingSchema{}
}

func (s *PricingSchema) Key() string {
	return models.PricingKey
}

func (s *PricingSchema) Normalize(raw json.RawMessage) (json.RawMessage, error) {
	doc, err := DecodePricing(raw)
	if err != nil {
		return nil, err
	}

	normalizePricing(doc)

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pricing document: %w", err)
	}
	return out, nil
}

func (s *PricingSchema) Seed() (json.RawMessage, error) {
	doc, err := seed.Pricing()
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pricing seed: %w", err)
	}

	out, err := s.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("pricing seed is invalid: %w", err)
	}
	return out, nil
}

// DecodePricing strictly decodes raw and checks every structural rule.
func DecodePricing(raw json.RawMessage) (*models.PricingDocument, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, newValidationError("value", "is required")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()

	var doc models.PricingDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, decodeError(err)
	}
	if dec.More() {
		return nil, newValidationError("value", "must be a single JSON object")
	}

	fields, err := validation.Fields(doc)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]int, len(doc.Plans))
	for i, p := range doc.Plans {
		if first, ok := seen[p.ID]; ok {
			fields = append(fields, validation.FieldError{
				Field:   fmt.Sprintf("plans[%d].id", i),
				Message: fmt.Sprintf("duplicates plans[%d].id", first),
			})
			continue
		}
		seen[p.ID] = i
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return &doc, nil
}

func normalizePricing(doc *models.PricingDocument) {
	for i := range doc.Plans {
		p := &doc.Plans[i]
		p.Name = strings.TrimSpace(p.Name)
		p.Description = strings.TrimSpace(p.Description)
		p.DisplayPrice = models.FormatDisplayPrice(p.Price)
		if p.Features == nil {
			p.Features = []string{}
		}
		for j, f := range p.Features {
			p.Features[j] = strings.TrimSpace(f)
		}
		if p.IncludesPackage != nil && strings.TrimSpace(*p.IncludesPackage) == "" {
			p.IncludesPackage = nil
		}
	}
}

func decodeError(err error) *ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "value"
		}
		return newValidationError(field, "must be "+describeType(typeErr.Type))
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return newValidationError("value", "must be valid JSON")
	}

	if name, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return newValidationError(strings.Trim(name, `"`), "is not a recognised field")
	}

	return newValidationError("value", err.Error())
}

func describeType(t reflect.Type) string {
	if t == nil {
		return "a valid value"
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return "an array"
	case reflect.Map, reflect.Struct:
		return "an object"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Ptr:
		return describeType(t.Elem())
	default:
		return "a " + t.String()
	}
}
