package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPricing = `{
	"plans": [
		{"id": 1, "name": " STARTER ", "price": 129, "billingCycle": "one-time",
		 "features": [" Filing "], "isRecommended": "false", "hasAssistBadge": 0}
	],
	"stateFilingFees": {"CA": 70}
}`

func requireFields(t *testing.T, err error) []validation.FieldError {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	return ve.Fields
}

func TestPricingSchema_Normalize(t *testing.T) {
	s := NewPricingSchema()

	out, err := s.Normalize(json.RawMessage(validPricing))
	require.NoError(t, err)

	var doc models.PricingDocument
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Len(t, doc.Plans, 1)
	assert.Equal(t, "STARTER", doc.Plans[0].Name)
	assert.Equal(t, "$129", doc.Plans[0].DisplayPrice)
	assert.Equal(t, []string{"Filing"}, doc.Plans[0].Features)
	assert.False(t, bool(doc.Plans[0].IsRecommended))

	// flags are stored as real booleans
	var generic map[string]any
	require.NoError(t, json.Unmarshal(out, &generic))
	plan := generic["plans"].([]any)[0].(map[string]any)
	assert.Equal(t, false, plan["isRecommended"])
	assert.Equal(t, false, plan["hasAssistBadge"])
}

func TestPricingSchema_NormalizeIsIdempotent(t *testing.T) {
	s := NewPricingSchema()

	once, err := s.Normalize(json.RawMessage(validPricing))
	require.NoError(t, err)
	twice, err := s.Normalize(once)
	require.NoError(t, err)
	assert.JSONEq(t, string(once), string(twice))
}

func TestPricingSchema_Rejects(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		field string
	}{
		{name: "null", input: `null`, field: "value"},
		{name: "empty", input: ``, field: "value"},
		{name: "array", input: `[]`, field: "value"},
		{name: "missing plans", input: `{"stateFilingFees": {}}`, field: "plans"},
		{name: "empty plans", input: `{"plans": [], "stateFilingFees": {}}`, field: "plans"},
		{name: "plans not array", input: `{"plans": "x", "stateFilingFees": {}}`, field: "plans"},
		{name: "missing fees", input: `{"plans": [{"id": 1, "name": "A", "price": 1, "billingCycle": "monthly"}]}`, field: "stateFilingFees"},
		{name: "fees not object", input: `{"plans": [{"id": 1, "name": "A", "price": 1, "billingCycle": "monthly"}], "stateFilingFees": []}`, field: "stateFilingFees"},
		{name: "negative price", input: `{"plans": [{"id": 1, "name": "A", "price": -1, "billingCycle": "monthly"}], "stateFilingFees": {}}`, field: "plans[0].price"},
		{name: "bad cycle", input: `{"plans": [{"id": 1, "name": "A", "price": 1, "billingCycle": "weekly"}], "stateFilingFees": {}}`, field: "plans[0].billingCycle"},
		{name: "blank feature", input: `{"plans": [{"id": 1, "name": "A", "price": 1, "billingCycle": "monthly", "features": [" "]}], "stateFilingFees": {}}`, field: "plans[0].features[0]"},
		{name: "unknown field", input: `{"plans": [{"id": 1, "name": "A", "price": 1, "billingCycle": "monthly"}], "stateFilingFees": {}, "extra": 1}`, field: "extra"},
	}

	s := NewPricingSchema()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Normalize(json.RawMessage(tc.input))
			fields := requireFields(t, err)
			require.NotEmpty(t, fields)
			assert.Equal(t, tc.field, fields[0].Field)
		})
	}
}

func TestPricingSchema_DuplicatePlanIDs(t *testing.T) {
	input := `{"plans": [
		{"id": 1, "name": "A", "price": 1, "billingCycle": "monthly"},
		{"id": 1, "name": "B", "price": 2, "billingCycle": "monthly"}
	], "stateFilingFees": {}}`

	_, err := NewPricingSchema().Normalize(json.RawMessage(input))
	fields := requireFields(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "plans[1].id", fields[0].Field)
}

func TestPricingSchema_Seed(t *testing.T) {
	s := NewPricingSchema()

	raw, err := s.Seed()
	require.NoError(t, err)

	doc, err := DecodePricing(raw)
	require.NoError(t, err)
	assert.Equal(t, "STARTER", doc.Plans[0].Name)
	assert.Equal(t, "$129", doc.Plans[0].DisplayPrice)
	assert.Len(t, doc.StateFilingFees, 51)
}

func TestRegistry(t *testing.T) {
	r := Default()

	s, ok := r.Lookup(models.PricingKey)
	require.True(t, ok)
	assert.Equal(t, models.PricingKey, s.Key())

	_, ok = r.Lookup("nope")
	assert.False(t, ok)
	assert.Equal(t, []string{models.PricingKey}, r.Keys())
}
