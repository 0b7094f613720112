/*
Package ledger provides the core normalization and aggregation engine for a
caddie income ledger.

PURPOSE:
  This package contains the pure domain logic for an earnings tracker built
  around "loops" (discrete caddying rounds) and expenses. Persisted records
  exist in several incompatible historical shapes; everything here operates
  on one canonical in-memory representation.

KEY CONCEPTS IN THIS FILE (types.go):
  - RawRecord: An untyped record as returned by the data store
  - Loop: One canonical work event (date, venue, fees/tips, clock times)
  - Expense: One canonical expense (amount, category, optional receipt)
  - Settings: Per-user configuration (mileage rate, home location, defaults)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all monetary amounts
  2. Tolerance: Raw input is never trusted; normalization owns the shape
  3. Purity: No I/O here - normalization, ranges, and aggregation are
     functions over immutable snapshots

SEE ALSO:
  - normalize.go: RawRecord -> canonical mapping with field precedence
  - timerange.go: Range-key resolution and local-date handling
  - aggregate.go: Reporting metrics over canonical loops
  - cache.go: In-memory record cache with subscriber notification
*/
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RAW RECORD - Untyped store output
// =============================================================================

// RawRecord is a persisted record of unknown historical shape.
// The store returns these verbatim; only Normalize* functions may interpret
// them. Values can be strings, JSON numbers, decimals, or missing entirely.
type RawRecord map[string]any

// =============================================================================
// LOOP - One discrete unit of paid work
// =============================================================================

type LoopType string

const (
	LoopSingle     LoopType = "Single"
	LoopDouble     LoopType = "Double"
	LoopForecaddie LoopType = "Forecaddie"
)

// Loop is the canonical work event. Every field is fully defaulted: money is
// a finite non-negative decimal, times are "HH:MM" or empty, Date is a
// "YYYY-MM-DD" calendar date or the raw string that failed to parse (kept so
// the record survives in the cache even when it can never match a range).
type Loop struct {
	ID       string
	Date     string
	Course   string
	PlaceID  string
	LoopType string

	BagFee     decimal.Decimal
	CashTip    decimal.Decimal
	DigitalTip decimal.Decimal
	PreGrat    decimal.Decimal

	ReportTime string
	TeeTime    string
	EndTime    string

	MileageMiles decimal.Decimal
	MileageCost  decimal.Decimal
}

// Total is the loop's income identity: bag fee plus all three tip buckets.
// Holds for every canonical loop regardless of the source shape.
func (l Loop) Total() decimal.Decimal {
	return l.BagFee.Add(l.CashTip).Add(l.DigitalTip).Add(l.PreGrat)
}

// Tips is the tip portion of income. Bag fees are excluded.
func (l Loop) Tips() decimal.Decimal {
	return l.CashTip.Add(l.DigitalTip).Add(l.PreGrat)
}

// MatchesType reports whether the loop's free-form type string matches a
// facet keyword ("single", "double", "fore"). Legacy data stores loop types
// with arbitrary casing and suffixes, so matching is by lowercase substring.
func (l Loop) MatchesType(keyword string) bool {
	if keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(l.LoopType), strings.ToLower(keyword))
}

// Raw converts the canonical loop back to the store's record shape using the
// current field names. Normalizing the result yields the loop unchanged.
func (l Loop) Raw() RawRecord {
	return RawRecord{
		"id":           l.ID,
		"date":         l.Date,
		"course":       l.Course,
		"placeId":      l.PlaceID,
		"loopType":     l.LoopType,
		"bagFee":       l.BagFee.String(),
		"cashTip":      l.CashTip.String(),
		"digitalTip":   l.DigitalTip.String(),
		"preGrat":      l.PreGrat.String(),
		"reportTime":   l.ReportTime,
		"teeTime":      l.TeeTime,
		"endTime":      l.EndTime,
		"mileageMiles": l.MileageMiles.String(),
		"mileageCost":  l.MileageCost.String(),
	}
}

// =============================================================================
// EXPENSE
// =============================================================================

// ExpenseCategories is the fixed option set offered by the UI. Free-form
// values normalize to "Other".
var ExpenseCategories = []string{
	"Gear", "Clothing", "Travel", "Meals", "Dues & Fees", "Other",
}

type Expense struct {
	ID          string
	Date        string
	Vendor      string
	Description string
	Category    string
	Amount      decimal.Decimal

	// Receipt metadata is opaque to this engine: a display name plus a
	// storage reference managed by the upload layer.
	ReceiptName string
	ReceiptRef  string
}

func (e Expense) Raw() RawRecord {
	return RawRecord{
		"id":          e.ID,
		"date":        e.Date,
		"vendor":      e.Vendor,
		"description": e.Description,
		"category":    e.Category,
		"amount":      e.Amount.String(),
		"receiptName": e.ReceiptName,
		"receiptRef":  e.ReceiptRef,
	}
}

// =============================================================================
// SETTINGS - Single per-user configuration record
// =============================================================================

// DefaultMileageRate is the per-mile deduction rate used when the user has
// never saved settings (the 2024 IRS standard rate).
var DefaultMileageRate = decimal.NewFromFloat(0.67)

type Settings struct {
	MileageRate decimal.Decimal
	HomeAddress string
	HomePlaceID string

	// Optional pre-filled bag fees per loop type. Zero means unset.
	DefaultBagFeeSingle     decimal.Decimal
	DefaultBagFeeDouble     decimal.Decimal
	DefaultBagFeeForecaddie decimal.Decimal
}

// DefaultBagFee returns the configured default bag fee for a loop type, or
// zero when none is set.
func (s Settings) DefaultBagFee(loopType string) decimal.Decimal {
	lt := strings.ToLower(loopType)
	switch {
	case strings.Contains(lt, "double"):
		return s.DefaultBagFeeDouble
	case strings.Contains(lt, "fore"):
		return s.DefaultBagFeeForecaddie
	case strings.Contains(lt, "single"):
		return s.DefaultBagFeeSingle
	default:
		return decimal.Zero
	}
}

func (s Settings) Raw() RawRecord {
	return RawRecord{
		"mileageRate":             s.MileageRate.String(),
		"homeAddress":             s.HomeAddress,
		"homePlaceId":             s.HomePlaceID,
		"defaultBagFeeSingle":     s.DefaultBagFeeSingle.String(),
		"defaultBagFeeDouble":     s.DefaultBagFeeDouble.String(),
		"defaultBagFeeForecaddie": s.DefaultBagFeeForecaddie.String(),
	}
}
