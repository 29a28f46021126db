package seed

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/Ramsey-B/clover/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed pricing.yaml
var pricingYAML []byte

var (
	pricingOnce sync.Once
	pricingDoc  models.PricingDocument
	pricingErr  error
)

// Pricing returns a copy of the catalogue shipped with the binary.
func Pricing() (models.PricingDocument, error) {
	pricingOnce.Do(func() {
		pricingDoc, pricingErr = ParsePricing(pricingYAML)
	})
	if pricingErr != nil {
		return models.PricingDocument{}, pricingErr
	}
	return clonePricing(pricingDoc), nil
}

func ParsePricing(data []byte) (models.PricingDocument, error) {
	var doc models.PricingDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to parse pricing seed: %w", err)
	}
	return doc, nil
}

func clonePricing(src models.PricingDocument) models.PricingDocument {
	dst := models.PricingDocument{
		Plans:             make([]models.Plan, len(src.Plans)),
		StateFilingFees:   make(map[string]float64, len(src.StateFilingFees)),
		StateDiscounts:    make(map[string]float64, len(src.StateDiscounts)),
		StateDescriptions: make(map[string]string, len(src.StateDescriptions)),
	}
	for i, p := range src.Plans {
		p.Features = append([]string(nil), p.Features...)
		if p.IncludesPackage != nil {
			pkg := *p.IncludesPackage
			p.IncludesPackage = &pkg
		}
		dst.Plans[i] = p
	}
	for k, v := range src.StateFilingFees {
		dst.StateFilingFees[k] = v
	}
	for k, v := range src.StateDiscounts {
		dst.StateDiscounts[k] = v
	}
	for k, v := range src.StateDescriptions {
		dst.StateDescriptions[k] = v
	}
	return dst
}
