package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// PricingKey is the document key of the pricing catalogue.
const PricingKey = "pricing_data"

type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleAnnual  BillingCycle = "annual"
	BillingCycleOneTime BillingCycle = "one-time"
)

// PricingDocument is the value stored under PricingKey.
type PricingDocument struct {
	Plans             []Plan             `json:"plans" yaml:"plans" validate:"required,min=1,dive"`
	StateFilingFees   map[string]float64 `json:"stateFilingFees" yaml:"stateFilingFees" validate:"required,dive,keys,required,endkeys,gte=0"`
	StateDiscounts    map[string]float64 `json:"stateDiscounts,omitempty" yaml:"stateDiscounts" validate:"omitempty,dive,keys,required,endkeys,gte=0"`
	StateDescriptions map[string]string  `json:"stateDescriptions,omitempty" yaml:"stateDescriptions" validate:"omitempty,dive,keys,required,endkeys"`
}

type Plan struct {
	ID              int          `json:"id" yaml:"id" validate:"gt=0"`
	Name            string       `json:"name" yaml:"name" validate:"required"`
	Price           float64      `json:"price" yaml:"price" validate:"gte=0"`
	DisplayPrice    string       `json:"displayPrice" yaml:"displayPrice"`
	BillingCycle    BillingCycle `json:"billingCycle" yaml:"billingCycle" validate:"required,oneof=monthly annual one-time"`
	Description     string       `json:"description" yaml:"description"`
	Features        []string     `json:"features" yaml:"features" validate:"dive,notblank"`
	IsRecommended   FlexBool     `json:"isRecommended" yaml:"isRecommended"`
	HasAssistBadge  FlexBool     `json:"hasAssistBadge" yaml:"hasAssistBadge"`
	IncludesPackage *string      `json:"includesPackage,omitempty" yaml:"includesPackage"`
}

// FormatDisplayPrice renders a price the way the storefront shows it:
// whole dollars without cents, anything else with two decimals.
func FormatDisplayPrice(price float64) string {
	if price == float64(int64(price)) {
		return "$" + strconv.FormatInt(int64(price), 10)
	}
	return "$" + strconv.FormatFloat(price, 'f', 2, 64)
}

// FlexBool decodes the loosely typed booleans older admin clients wrote
// ("true", "1", 1, null) and always encodes as a JSON boolean.
type FlexBool bool

func (b FlexBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch data[0] {
	case 'n':
		*b = false
		return nil
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*b = FlexBool(v)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1", "yes", "on":
			*b = true
		case "false", "0", "no", "off", "":
			*b = false
		default:
			return &json.UnmarshalTypeError{Value: "string " + strconv.Quote(s), Type: reflect.TypeOf(*b)}
		}
		return nil
	}

	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return &json.UnmarshalTypeError{Value: string(data), Type: reflect.TypeOf(*b)}
	}
	*b = n != 0
	return nil
}

func (b FlexBool) String() string {
	return fmt.Sprintf("%t", bool(b))
}
