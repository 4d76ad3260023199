package app

import (
	"context"

	"github.com/shopspring/decimal"

	"finance-brief/internal/portfolio"
)

// ShowPortfolio prints holdings with P&L.
func (a *App) ShowPortfolio(ctx context.Context) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	holdings := s.portfolio.Valued(ctx)
	if len(holdings) == 0 {
		a.println("Portfolio is empty.")
		return nil
	}
	a.println(portfolio.FormatValued(holdings))
	return nil
}

// AddHolding buys shares at cost, merging into an existing position.
func (a *App) AddHolding(ctx context.Context, symbol string, shares, cost decimal.Decimal) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	h, merged, err := s.portfolio.Add(symbol, shares, cost)
	if err != nil {
		return err
	}
	verb := "Added"
	if merged {
		verb = "Updated"
	}
	a.printf("%s %s: %s shares @ %s\n", verb, h.Symbol, h.Shares.String(), h.CostPrice.StringFixed(4))
	return nil
}

// RemoveHolding sells shares, or the whole position when shares is nil.
func (a *App) RemoveHolding(ctx context.Context, symbol string, shares *decimal.Decimal) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	h, closed, err := s.portfolio.Remove(symbol, shares)
	if err != nil {
		return err
	}
	if closed {
		a.printf("Removed %s\n", h.Symbol)
		return nil
	}
	a.printf("Reduced %s to %s shares\n", h.Symbol, h.Shares.String())
	return nil
}

// PortfolioSectors prints allocation by sector.
func (a *App) PortfolioSectors(ctx context.Context) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	a.println(portfolio.FormatSectors(s.portfolio.Sectors(ctx)))
	return nil
}
