package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricing(t *testing.T) {
	doc, err := Pricing()
	require.NoError(t, err)

	require.Len(t, doc.Plans, 3)
	assert.Equal(t, "STARTER", doc.Plans[0].Name)
	assert.Equal(t, 129.0, doc.Plans[0].Price)
	assert.True(t, bool(doc.Plans[1].IsRecommended))
	assert.True(t, bool(doc.Plans[2].HasAssistBadge))
	require.NotNil(t, doc.Plans[2].IncludesPackage)

	// 50 states plus DC
	assert.Len(t, doc.StateFilingFees, 51)
	assert.Equal(t, 70.0, doc.StateFilingFees["CA"])
	assert.Equal(t, 500.0, doc.StateFilingFees["MA"])
}

func TestPricing_ReturnsCopy(t *testing.T) {
	first, err := Pricing()
	require.NoError(t, err)

	first.Plans[0].Price = 1
	first.Plans[0].Features[0] = "changed"
	first.StateFilingFees["CA"] = 1

	second, err := Pricing()
	require.NoError(t, err)
	assert.Equal(t, 129.0, second.Plans[0].Price)
	assert.NotEqual(t, "changed", second.Plans[0].Features[0])
	assert.Equal(t, 70.0, second.StateFilingFees["CA"])
}

func TestParsePricing_Invalid(t *testing.T) {
	_, err := ParsePricing([]byte("plans: [unterminated"))
	assert.Error(t, err)
}
