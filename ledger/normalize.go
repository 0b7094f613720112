/*
normalize.go - RawRecord to canonical record mapping

PURPOSE:
  The persisted schema drifted over time: money fields were renamed from
  snake_case to camelCase, a single "tip" field was split into cash/digital
  buckets, and "preGrat" spent a while misspelled as "pregrat". This file is
  the ONE place that knows every historical shape. It maps any raw record
  onto the canonical Loop/Expense/Settings types.

FIELD RESOLUTION:
  Each canonical field has an ordered alias list (current name first). The
  first alias present in the raw record wins; its value is then coerced.
  Coercion never fails: an unparsable or negative monetary value becomes
  exactly 0 (absolute value is NOT applied), an invalid clock time becomes
  empty, an unrecognized date is kept verbatim so the record survives in the
  cache even though it can never match a date range.

TIP RECONCILIATION:
  Modern records carry explicit cashTip/digitalTip. Legacy records carry a
  single tip amount plus a tipType discriminator. When the explicit fields
  are absent or both zero, the legacy amount is routed by discriminator
  prefix: "cash*" -> cashTip, "digit*" -> digitalTip, anything else ->
  digitalTip. Unknown tip types default to digital deliberately: that is how
  historical income was classified, and rerouting it would silently restate
  old reports.

INVARIANTS:
  - Normalize*(r) never panics and never returns an error
  - Normalize*(Normalize*(r).Raw()) == Normalize*(r)
  - Loop.Total() == BagFee + CashTip + DigitalTip + PreGrat afterwards

SEE ALSO:
  - types.go: Canonical shapes
  - timerange.go: Local-date parsing used for date canonicalization
*/
package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LOOP NORMALIZATION
// =============================================================================

// NormalizeLoop maps a raw record of any historical shape onto a canonical
// Loop. It never fails; fields that cannot be interpreted take their default.
func NormalizeLoop(r RawRecord) Loop {
	l := Loop{
		ID:       stringField(r, "id", "_id", "loopId"),
		Course:   stringField(r, "course", "courseName", "course_name"),
		PlaceID:  stringField(r, "placeId", "place_id"),
		LoopType: strings.TrimSpace(stringField(r, "loopType", "loop_type", "type")),

		BagFee:  moneyField(r, "bagFee", "bag_fee"),
		PreGrat: moneyField(r, "preGrat", "pre_grat", "pregrat"),

		ReportTime: clockField(r, "reportTime", "report_time"),
		TeeTime:    clockField(r, "teeTime", "tee_time"),
		EndTime:    clockField(r, "endTime", "end_time"),

		MileageMiles: moneyField(r, "mileageMiles", "mileage_miles"),
		MileageCost:  moneyField(r, "mileageCost", "mileage_cost"),
	}

	l.Date = canonicalDate(stringField(r, "date", "loopDate", "loop_date"))
	l.CashTip, l.DigitalTip = reconcileTips(r)
	return l
}

// reconcileTips resolves the cash/digital tip split across record
// generations. Explicit split fields win when either is non-zero; otherwise
// a legacy single-tip amount is routed by its discriminator.
func reconcileTips(r RawRecord) (cash, digital decimal.Decimal) {
	cash = moneyField(r, "cashTip", "cash_tip")
	digital = moneyField(r, "digitalTip", "digital_tip")
	if !cash.IsZero() || !digital.IsZero() {
		return cash, digital
	}

	legacy, ok := firstPresent(r, "tip", "tipAmount", "tip_amount")
	if !ok {
		return cash, digital
	}
	amount := coerceMoney(legacy)
	if amount.IsZero() {
		return cash, digital
	}

	disc := strings.ToLower(strings.TrimSpace(stringField(r, "tipType", "tip_type", "tip_method")))
	switch {
	case strings.HasPrefix(disc, "cash"):
		cash = amount
	case strings.HasPrefix(disc, "digit"):
		digital = amount
	default:
		// Unknown or missing discriminator routes to digital. Changing this
		// would reclassify historical income.
		digital = amount
	}
	return cash, digital
}

// =============================================================================
// EXPENSE NORMALIZATION
// =============================================================================

// NormalizeExpense maps a raw expense onto the canonical shape. Narrower
// than loops: only the amount needs numeric coercion, the rest are optional
// strings.
func NormalizeExpense(r RawRecord) Expense {
	return Expense{
		ID:          stringField(r, "id", "_id", "expenseId"),
		Date:        canonicalDate(stringField(r, "date", "expenseDate", "expense_date")),
		Vendor:      stringField(r, "vendor", "merchant"),
		Description: stringField(r, "description", "desc"),
		Category:    normalizeCategory(stringField(r, "category")),
		Amount:      moneyField(r, "amount", "expense_amount", "cost"),
		ReceiptName: stringField(r, "receiptName", "receipt_name"),
		ReceiptRef:  stringField(r, "receiptRef", "receipt_ref", "receiptUrl"),
	}
}

func normalizeCategory(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, c := range ExpenseCategories {
		if strings.EqualFold(raw, c) {
			return c
		}
	}
	// Free-form and legacy values collapse to the catch-all bucket.
	return "Other"
}

// =============================================================================
// SETTINGS NORMALIZATION
// =============================================================================

// NormalizeSettings maps a raw settings record onto the canonical shape.
// A missing or non-positive mileage rate falls back to DefaultMileageRate.
func NormalizeSettings(r RawRecord) Settings {
	s := Settings{
		MileageRate: moneyField(r, "mileageRate", "mileage_rate"),
		HomeAddress: stringField(r, "homeAddress", "home_address"),
		HomePlaceID: stringField(r, "homePlaceId", "home_place_id"),

		DefaultBagFeeSingle:     moneyField(r, "defaultBagFeeSingle", "default_bag_fee_single"),
		DefaultBagFeeDouble:     moneyField(r, "defaultBagFeeDouble", "default_bag_fee_double"),
		DefaultBagFeeForecaddie: moneyField(r, "defaultBagFeeForecaddie", "default_bag_fee_forecaddie"),
	}
	if !s.MileageRate.IsPositive() {
		s.MileageRate = DefaultMileageRate
	}
	return s
}

// =============================================================================
// FIELD RESOLUTION HELPERS
// =============================================================================

// firstPresent returns the value of the first alias present in the record.
func firstPresent(r RawRecord, aliases ...string) (any, bool) {
	for _, a := range aliases {
		if v, ok := r[a]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// stringField resolves an alias list to a trimmed string. Numeric values
// (some old clients wrote ids as numbers) are formatted; anything else is
// the empty string.
func stringField(r RawRecord, aliases ...string) string {
	v, ok := firstPresent(r, aliases...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		if s == math.Trunc(s) && !math.IsInf(s, 0) {
			return fmt.Sprintf("%.0f", s)
		}
		return fmt.Sprintf("%v", s)
	case int:
		return fmt.Sprintf("%d", s)
	case int64:
		return fmt.Sprintf("%d", s)
	default:
		return ""
	}
}

// moneyField resolves an alias list to a monetary decimal. The first alias
// PRESENT wins even if its value is garbage - a record that says
// bagFee: "abc" meant zero, not whatever a stale bag_fee holds.
func moneyField(r RawRecord, aliases ...string) decimal.Decimal {
	v, ok := firstPresent(r, aliases...)
	if !ok {
		return decimal.Zero
	}
	return coerceMoney(v)
}

// coerceMoney interprets one value as a non-negative monetary amount.
// Currency symbols and grouping commas are stripped before parsing.
// Unparsable, non-finite, or negative input is exactly 0.
func coerceMoney(v any) decimal.Decimal {
	var d decimal.Decimal
	switch n := v.(type) {
	case decimal.Decimal:
		d = n
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero
		}
		d = decimal.NewFromFloat(n)
	case int:
		d = decimal.NewFromInt(int64(n))
	case int64:
		d = decimal.NewFromInt(n)
	case json.Number:
		parsed, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	case string:
		cleaned := cleanMoneyString(n)
		if cleaned == "" {
			return decimal.Zero
		}
		parsed, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	default:
		return decimal.Zero
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// cleanMoneyString drops everything that is not a digit or decimal point
// ("$1,250.50" -> "1250.50"). A minus sign anywhere before the first digit
// marks the amount negative regardless of surrounding currency symbols, so
// "-$5" and "$-5" both coerce to zero downstream.
func cleanMoneyString(s string) string {
	var b strings.Builder
	negative := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			negative = true
		}
	}
	if negative && b.Len() > 0 {
		return "-" + b.String()
	}
	return b.String()
}

// clockField resolves an alias list to a zero-padded "HH:MM" string, or
// empty when the value is missing or not a valid clock time.
func clockField(r RawRecord, aliases ...string) string {
	raw := stringField(r, aliases...)
	if raw == "" {
		return ""
	}
	minutes, ok := ParseClock(raw)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
