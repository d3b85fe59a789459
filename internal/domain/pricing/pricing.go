package pricing

import (
	"errors"

	"stayfinder/internal/domain/listings"
	"stayfinder/internal/domain/shared/daterange"
	"stayfinder/internal/domain/shared/money"
)

var (
	ErrNegativeComponent = errors.New("pricing: components cannot be negative")
	ErrCurrencyUnset     = errors.New("pricing: currency must be defined")
	ErrNoNights          = errors.New("pricing: nights must be positive")
)

const (
	FeeCleaning = "cleaning"
	FeeService  = "service"
)

type Fee struct {
	Name   string
	Amount money.Money
}

type PriceBreakdown struct {
	Nights  int
	Nightly money.Money
	Fees    []Fee
	Total   money.Money
}

func (p *PriceBreakdown) Validate() error {
	if p.Nightly.Currency == "" {
		return ErrCurrencyUnset
	}
	if p.Nights <= 0 {
		return ErrNoNights
	}
	if p.Nightly.IsNegative() {
		return ErrNegativeComponent
	}
	return nil
}

func (p *PriceBreakdown) RecalculateTotal() error {
	if err := p.Validate(); err != nil {
		return err
	}
	total := p.Nightly.Multiply(int64(p.Nights))
	for _, fee := range p.Fees {
		if fee.Amount.IsNegative() {
			return ErrNegativeComponent
		}
		sum, err := total.Add(fee.Amount)
		if err != nil {
			return err
		}
		total = sum
	}
	p.Total = total
	return nil
}

func (p PriceBreakdown) Copy() PriceBreakdown {
	clone := p
	clone.Fees = append([]Fee(nil), p.Fees...)
	return clone
}

// FeeAmount returns the named fee or zero.
func (p PriceBreakdown) FeeAmount(name string) money.Money {
	for _, fee := range p.Fees {
		if fee.Name == name {
			return fee.Amount
		}
	}
	return money.Zero(p.Nightly.Currency)
}

// Quote prices a stay: nights × base + cleaning fee + service fee.
// Nights round up, so a partial day is billed as a full night.
func Quote(rates listings.Rates, dr daterange.DateRange) (PriceBreakdown, error) {
	if err := dr.Validate(); err != nil {
		return PriceBreakdown{}, err
	}
	breakdown := PriceBreakdown{
		Nights:  dr.Nights(),
		Nightly: rates.Nightly(),
		Fees: []Fee{
			{Name: FeeCleaning, Amount: rates.Cleaning()},
			{Name: FeeService, Amount: rates.Service()},
		},
	}
	if err := breakdown.RecalculateTotal(); err != nil {
		return PriceBreakdown{}, err
	}
	return breakdown, nil
}
