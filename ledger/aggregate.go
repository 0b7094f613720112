/*
aggregate.go - Reporting metrics over canonical records

PURPOSE:
  Reduces a set of canonical loops (already normalized, already filtered to
  a date range and optionally a loop-type facet) into the figures the UI
  renders: category sums, tip percentages, per-loop averages, $/hour rates,
  and pace/wait time statistics.

DIVISION SAFETY:
  Every ratio in this file yields exactly 0 (or 0%) when its denominator is
  zero or undefined. This is enforced at each division site, not at render
  time: a brand-new user with no loops sees a consistent all-zero report,
  never NaN or Infinity.

TIME METRICS:
  A loop only participates in a time metric when it has both required clock
  times and the later one is not earlier than the former. A loop that fails
  either test is EXCLUDED from that metric's sums and averages - it is not
  counted as zero, which would drag averages down for users who only
  sometimes record their times.

SEE ALSO:
  - timerange.go: Date-range filtering
  - normalize.go: The only producer of canonical records
*/
package ledger

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	oneHundred   = decimal.NewFromInt(100)
	minutesPerHr = decimal.NewFromInt(60)
)

// =============================================================================
// FILTERS
// =============================================================================

// FilterLoops returns the loops whose dates fall inside the range.
func FilterLoops(loops []Loop, dr DateRange) []Loop {
	var out []Loop
	for _, l := range loops {
		if dr.Contains(l.Date) {
			out = append(out, l)
		}
	}
	return out
}

// FilterExpenses returns the expenses whose dates fall inside the range.
func FilterExpenses(expenses []Expense, dr DateRange) []Expense {
	var out []Expense
	for _, e := range expenses {
		if dr.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out
}

// facetKeyword maps a loop-type facet to its match keyword. The facet is
// matched loosely: "Singles", "single", "SINGLE BAG" all select singles.
// "all", empty, and unrecognized facets select everything.
func facetKeyword(facet string) string {
	f := strings.ToLower(strings.TrimSpace(facet))
	switch {
	case strings.Contains(f, "single"):
		return "single"
	case strings.Contains(f, "double"):
		return "double"
	case strings.Contains(f, "fore"):
		return "fore"
	default:
		return ""
	}
}

// FilterLoopType returns the loops matching a loop-type facet.
func FilterLoopType(loops []Loop, facet string) []Loop {
	kw := facetKeyword(facet)
	if kw == "" {
		return loops
	}
	var out []Loop
	for _, l := range loops {
		if l.MatchesType(kw) {
			out = append(out, l)
		}
	}
	return out
}

// =============================================================================
// INCOME SUMMARY
// =============================================================================

// IncomeSummary is the income view: category sums plus derived ratios.
type IncomeSummary struct {
	LoopCount int

	BagFees     decimal.Decimal
	CashTips    decimal.Decimal
	DigitalTips decimal.Decimal
	PreGrats    decimal.Decimal
	TotalIncome decimal.Decimal

	MileageMiles decimal.Decimal
	MileageCost  decimal.Decimal

	// TipsPct is the share of income that was tipped (bag fees excluded
	// from the numerator), rounded to a whole percent.
	TipsPct int64

	// Per-category share of total income, rounded whole percents.
	BagFeePct     int64
	CashTipPct    int64
	DigitalTipPct int64
	PreGratPct    int64

	AvgEarningsPerLoop decimal.Decimal
}

// Summarize reduces loops into the income view. The caller filters first.
func Summarize(loops []Loop) IncomeSummary {
	s := IncomeSummary{
		LoopCount:          len(loops),
		BagFees:            decimal.Zero,
		CashTips:           decimal.Zero,
		DigitalTips:        decimal.Zero,
		PreGrats:           decimal.Zero,
		TotalIncome:        decimal.Zero,
		MileageMiles:       decimal.Zero,
		MileageCost:        decimal.Zero,
		AvgEarningsPerLoop: decimal.Zero,
	}
	tips := decimal.Zero
	for _, l := range loops {
		s.BagFees = s.BagFees.Add(l.BagFee)
		s.CashTips = s.CashTips.Add(l.CashTip)
		s.DigitalTips = s.DigitalTips.Add(l.DigitalTip)
		s.PreGrats = s.PreGrats.Add(l.PreGrat)
		s.MileageMiles = s.MileageMiles.Add(l.MileageMiles)
		s.MileageCost = s.MileageCost.Add(l.MileageCost)
		s.TotalIncome = s.TotalIncome.Add(l.Total())
		tips = tips.Add(l.Tips())
	}
	s.TipsPct = Pct(tips, s.TotalIncome)
	s.BagFeePct = Pct(s.BagFees, s.TotalIncome)
	s.CashTipPct = Pct(s.CashTips, s.TotalIncome)
	s.DigitalTipPct = Pct(s.DigitalTips, s.TotalIncome)
	s.PreGratPct = Pct(s.PreGrats, s.TotalIncome)

	if s.LoopCount > 0 {
		s.AvgEarningsPerLoop = s.TotalIncome.DivRound(decimal.NewFromInt(int64(s.LoopCount)), 2)
	}
	return s
}

// Pct is round(part/whole * 100), and exactly 0 when whole <= 0. Every
// category share runs through here so an empty ledger renders 0% everywhere.
func Pct(part, whole decimal.Decimal) int64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Mul(oneHundred).DivRound(whole, 0).IntPart()
}

// =============================================================================
// EXPENSE SUMMARY
// =============================================================================

type ExpenseSummary struct {
	ExpenseCount int
	Total        decimal.Decimal
	ByCategory   map[string]decimal.Decimal
}

// SummarizeExpenses reduces expenses into totals and a per-category split.
func SummarizeExpenses(expenses []Expense) ExpenseSummary {
	s := ExpenseSummary{
		ExpenseCount: len(expenses),
		Total:        decimal.Zero,
		ByCategory:   make(map[string]decimal.Decimal),
	}
	for _, e := range expenses {
		s.Total = s.Total.Add(e.Amount)
		s.ByCategory[e.Category] = s.ByCategory[e.Category].Add(e.Amount)
	}
	return s
}

// =============================================================================
// TIME METRICS
// =============================================================================

// TimeMetrics covers the insights view: how long loops take, how long the
// caddie waits, and what the time works out to per hour.
type TimeMetrics struct {
	// Summed minutes and the number of loops that qualified for each
	// metric. Counts differ per metric: a loop may have tee+end times but
	// no report time.
	OnBagMinutes   int
	OnBagCount     int
	OverallMinutes int
	OverallCount   int
	WaitMinutes    int
	WaitCount      int
	PaceMinutes    int
	PaceCount      int

	// Dollars per hour over the qualifying minutes, zero when no loop
	// qualified.
	PerHourOverall decimal.Decimal
	PerHourOnBag   decimal.Decimal

	// Arithmetic means over qualifying loops only.
	AvgWaitMinutes float64
	AvgPaceMinutes float64
}

// InsightsReport is the faceted insights view: income plus time metrics for
// the loops matching one loop-type facet.
type InsightsReport struct {
	Facet string
	IncomeSummary
	TimeMetrics
}

// Insights reduces range-filtered loops into the insights view for one
// loop-type facet ("single", "double", "fore", or "all").
func Insights(loops []Loop, facet string) InsightsReport {
	matched := FilterLoopType(loops, facet)
	income := Summarize(matched)
	return InsightsReport{
		Facet:         facet,
		IncomeSummary: income,
		TimeMetrics:   timeMetrics(matched, income.TotalIncome),
	}
}

// spanMinutes returns the minutes from one clock time to a later one.
// Qualifies only when both parse and the later time is not earlier than the
// former; an inverted pair means a data-entry mistake and is excluded
// rather than recorded as negative or zero.
func spanMinutes(from, to string) (int, bool) {
	f, ok := ParseClock(from)
	if !ok {
		return 0, false
	}
	t, ok := ParseClock(to)
	if !ok {
		return 0, false
	}
	if t < f {
		return 0, false
	}
	return t - f, true
}

func timeMetrics(loops []Loop, totalIncome decimal.Decimal) TimeMetrics {
	var m TimeMetrics
	for _, l := range loops {
		if mins, ok := spanMinutes(l.TeeTime, l.EndTime); ok {
			m.OnBagMinutes += mins
			m.OnBagCount++
			// Pace of play is the same span, reported separately.
			m.PaceMinutes += mins
			m.PaceCount++
		}
		if mins, ok := spanMinutes(l.ReportTime, l.EndTime); ok {
			m.OverallMinutes += mins
			m.OverallCount++
		}
		if mins, ok := spanMinutes(l.ReportTime, l.TeeTime); ok {
			m.WaitMinutes += mins
			m.WaitCount++
		}
	}

	m.PerHourOverall = perHour(totalIncome, m.OverallMinutes)
	m.PerHourOnBag = perHour(totalIncome, m.OnBagMinutes)
	if m.WaitCount > 0 {
		m.AvgWaitMinutes = float64(m.WaitMinutes) / float64(m.WaitCount)
	}
	if m.PaceCount > 0 {
		m.AvgPaceMinutes = float64(m.PaceMinutes) / float64(m.PaceCount)
	}
	return m
}

// perHour is income / (minutes/60), zero when no minutes qualified.
func perHour(income decimal.Decimal, minutes int) decimal.Decimal {
	if minutes <= 0 {
		return decimal.Zero
	}
	return income.Mul(minutesPerHr).DivRound(decimal.NewFromInt(int64(minutes)), 2)
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatDuration renders minutes as "2h 15m", or "45m" under an hour.
// Non-positive or non-finite input renders as "0m".
func FormatDuration(minutes float64) string {
	if minutes <= 0 || math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return "0m"
	}
	total := int(math.Round(minutes))
	h, m := total/60, total%60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
