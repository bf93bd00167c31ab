package domain

import "time"

// PriceType tells whether a price is charged once or on a schedule.
type PriceType string

const (
	PriceTypeOneTime   PriceType = "one_time"
	PriceTypeRecurring PriceType = "recurring"
)

// AmountType selects the price term variant.
type AmountType string

const (
	AmountTypeFixed  AmountType = "fixed"
	AmountTypeCustom AmountType = "custom"
	AmountTypeFree   AmountType = "free"
)

// Price is a pricing rule attached to exactly one product.
//
// Amount and Currency are set for fixed prices. Custom prices carry a
// currency and optional Minimum, Maximum and Preset amounts configured in the
// catalog. Free prices carry none of them.
type Price struct {
	ID                string     `json:"id"`
	ProductID         string     `json:"productId"`
	Type              PriceType  `json:"type"`
	RecurringInterval string     `json:"recurringInterval,omitempty"`
	AmountType        AmountType `json:"amountType"`
	Amount            *int64     `json:"amount,omitempty"`
	Currency          *string    `json:"currency,omitempty"`
	MinimumAmount     *int64     `json:"minimumAmount,omitempty"`
	MaximumAmount     *int64     `json:"maximumAmount,omitempty"`
	PresetAmount      *int64     `json:"presetAmount,omitempty"`
	IsArchived        bool       `json:"isArchived"`
	ProcessorPriceID  string     `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
	Product           Product    `json:"product"`
}

// IsRecurring reports whether the price bills on a schedule.
func (p Price) IsRecurring() bool {
	return p.Type == PriceTypeRecurring
}

// Purchasable reports whether neither the price nor its product is archived.
func (p Price) Purchasable() bool {
	return !p.IsArchived && !p.Product.IsArchived
}

// AmountAllowed applies the catalog's bounds to a customer-chosen amount.
// Only custom prices accept a chosen amount.
func (p Price) AmountAllowed(amount int64) bool {
	if p.AmountType != AmountTypeCustom {
		return false
	}
	if amount < 0 {
		return false
	}
	if p.MinimumAmount != nil && amount < *p.MinimumAmount {
		return false
	}
	if p.MaximumAmount != nil && amount > *p.MaximumAmount {
		return false
	}
	return true
}
