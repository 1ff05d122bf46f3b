package service

import (
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// Clock returns the current time. Services take one so tests can pin the date.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// LedgerPolicy holds the monetary rules of the engine.
type LedgerPolicy struct {
	Currency          string
	SystemIdentity    string
	BonusAmount       decimal.Decimal
	RevealFee         decimal.Decimal
	FreeRevealsPerDay int
	Location          *time.Location // calendar used for reveal days and listing dates
}

// DefaultPolicy returns the stock rules: EGP, 1000.00 bonus, 3 free reveals
// a day then 10.00 per reveal, days counted in UTC.
func DefaultPolicy() LedgerPolicy {
	return LedgerPolicy{
		Currency:          domain.DefaultCurrency,
		SystemIdentity:    "shipay_bonus_bot",
		BonusAmount:       decimal.NewFromInt(1000),
		RevealFee:         decimal.NewFromInt(10),
		FreeRevealsPerDay: 3,
		Location:          time.UTC,
	}
}

// PolicyFromConfig builds the policy from the ledger config section.
func PolicyFromConfig(cfg config.LedgerConfig) LedgerPolicy {
	p := DefaultPolicy()
	if cfg.Currency != "" {
		p.Currency = cfg.Currency
	}
	if cfg.SystemIdentity != "" {
		p.SystemIdentity = cfg.SystemIdentity
	}
	p.BonusAmount = cfg.BonusAmount
	p.RevealFee = cfg.RevealFee
	p.FreeRevealsPerDay = cfg.FreeRevealsPerDay
	p.Location = cfg.Location()
	return p
}
