package billing

import (
	"strings"

	"github.com/shopspring/decimal"

	"mgm-billing/internal/database/models"
)

// othersMarkup is added per gram to the silver rate for the "others" category.
var othersMarkup = decimal.NewFromInt(10)

type NewPurchaseLineItem struct {
	CategoryName    string          `json:"category_name"`
	SubcategoryName string          `json:"subcategory_name"`
	Weight          decimal.Decimal `json:"weight"`
	MetalRate       decimal.Decimal `json:"metal_rate"`
	SeikuliRate     decimal.Decimal `json:"seikuli_rate"`
	SeikuliAmount   decimal.Decimal `json:"seikuli_amount"`
	BaseAmount      decimal.Decimal `json:"base_amount"`
	LineTotal       decimal.Decimal `json:"line_total"`
	GSTApplicable   bool            `json:"gst_applicable"`
}

type OldOrnamentLineItem struct {
	CategoryName    string          `json:"category_name"`
	SubcategoryName string          `json:"subcategory_name"`
	InitialWeight   decimal.Decimal `json:"initial_weight"`
	FinalWeight     decimal.Decimal `json:"final_weight"`
	RatePerGram     decimal.Decimal `json:"rate_per_gram"`
	Value           decimal.Decimal `json:"value"`
}

// EffectiveRate picks the per-gram metal rate for a category name.
func EffectiveRate(categoryName string, goldRate, silverRate decimal.Decimal) decimal.Decimal {
	name := strings.ToLower(strings.TrimSpace(categoryName))
	switch {
	case name == "others":
		return silverRate.Add(othersMarkup)
	case strings.Contains(name, "silver"):
		return silverRate
	default:
		return goldRate
	}
}

func PriceNewItem(category *models.Category, subcategory *models.Subcategory, weight, goldRate, silverRate decimal.Decimal, gstApplicable bool) (NewPurchaseLineItem, error) {
	if category == nil || strings.TrimSpace(category.Name) == "" {
		return NewPurchaseLineItem{}, invalid("category", "is required")
	}
	if subcategory == nil {
		return NewPurchaseLineItem{}, invalid("subcategory", "is required")
	}
	if !weight.IsPositive() {
		return NewPurchaseLineItem{}, invalid("weight", "must be a positive number")
	}

	rate := EffectiveRate(category.Name, goldRate, silverRate)
	base := weight.Mul(rate)

	seikuliRate := decimal.Zero
	if subcategory.SeikuliRate != nil {
		seikuliRate = *subcategory.SeikuliRate
	}
	seikuli := weight.Mul(seikuliRate)

	return NewPurchaseLineItem{
		CategoryName:    category.Name,
		SubcategoryName: subcategory.Name,
		Weight:          weight,
		MetalRate:       rate,
		SeikuliRate:     seikuliRate,
		SeikuliAmount:   seikuli,
		BaseAmount:      base,
		LineTotal:       base.Add(seikuli),
		GSTApplicable:   gstApplicable,
	}, nil
}

// PriceOldOrnament values a trade-in by its final weight. The initial weight is kept for the record only.
func PriceOldOrnament(category *models.Category, subcategory *models.Subcategory, initialWeight, finalWeight, ratePerGram *decimal.Decimal) (OldOrnamentLineItem, error) {
	if category == nil || strings.TrimSpace(category.Name) == "" {
		return OldOrnamentLineItem{}, invalid("category", "is required")
	}
	if subcategory == nil {
		return OldOrnamentLineItem{}, invalid("subcategory", "is required")
	}
	if initialWeight == nil {
		return OldOrnamentLineItem{}, invalid("initial_weight", "is required")
	}
	if finalWeight == nil {
		return OldOrnamentLineItem{}, invalid("final_weight", "is required")
	}
	if ratePerGram == nil {
		return OldOrnamentLineItem{}, invalid("rate_per_gram", "is required")
	}

	return OldOrnamentLineItem{
		CategoryName:    category.Name,
		SubcategoryName: subcategory.Name,
		InitialWeight:   *initialWeight,
		FinalWeight:     *finalWeight,
		RatePerGram:     *ratePerGram,
		Value:           finalWeight.Mul(*ratePerGram),
	}, nil
}

// ParseAmount reads an operator-entered number. Blank input yields nil.
func ParseAmount(field, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, invalid(field, "%q is not a number", raw)
	}
	return &value, nil
}

func ParseWeight(field, raw string) (decimal.Decimal, error) {
	value, err := ParseAmount(field, raw)
	if err != nil {
		return decimal.Zero, err
	}
	if value == nil {
		return decimal.Zero, invalid(field, "is required")
	}
	if !value.IsPositive() {
		return decimal.Zero, invalid(field, "must be a positive number")
	}
	return *value, nil
}
