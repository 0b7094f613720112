/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the canonical records from the external API contract. Monetary values go
  out as JSON numbers (two-decimal floats); inbound values run through the
  normalizer anyway, so the request types stay permissive.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags; handlers validate after
  decoding. Validation guards the current client's contract only - records
  already persisted in legacy shapes never pass through these types.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/normalize.go: The real gatekeeper for record shape
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/fairway/loopledger/ledger"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// LoopRequest is the create/update payload for a loop. Mileage fields are
// absent on purpose: mileage is computed server-side at save time.
type LoopRequest struct {
	ID         string  `json:"id,omitempty"`
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	Course     string  `json:"course" validate:"required"`
	PlaceID    string  `json:"placeId,omitempty"`
	LoopType   string  `json:"loopType" validate:"required"`
	BagFee     float64 `json:"bagFee" validate:"gte=0"`
	CashTip    float64 `json:"cashTip" validate:"gte=0"`
	DigitalTip float64 `json:"digitalTip" validate:"gte=0"`
	PreGrat    float64 `json:"preGrat" validate:"gte=0"`
	ReportTime string  `json:"reportTime,omitempty"`
	TeeTime    string  `json:"teeTime,omitempty"`
	EndTime    string  `json:"endTime,omitempty"`
}

// Raw converts the request to the raw-record shape the cache expects.
func (r LoopRequest) Raw() ledger.RawRecord {
	return ledger.RawRecord{
		"id":         r.ID,
		"date":       r.Date,
		"course":     r.Course,
		"placeId":    r.PlaceID,
		"loopType":   r.LoopType,
		"bagFee":     r.BagFee,
		"cashTip":    r.CashTip,
		"digitalTip": r.DigitalTip,
		"preGrat":    r.PreGrat,
		"reportTime": r.ReportTime,
		"teeTime":    r.TeeTime,
		"endTime":    r.EndTime,
	}
}

// ExpenseRequest is the create/update payload for an expense.
type ExpenseRequest struct {
	ID          string  `json:"id,omitempty"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Vendor      string  `json:"vendor,omitempty"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	ReceiptName string  `json:"receiptName,omitempty"`
	ReceiptRef  string  `json:"receiptRef,omitempty"`
}

func (r ExpenseRequest) Raw() ledger.RawRecord {
	return ledger.RawRecord{
		"id":          r.ID,
		"date":        r.Date,
		"vendor":      r.Vendor,
		"description": r.Description,
		"category":    r.Category,
		"amount":      r.Amount,
		"receiptName": r.ReceiptName,
		"receiptRef":  r.ReceiptRef,
	}
}

// SettingsRequest is the update payload for user settings.
type SettingsRequest struct {
	MileageRate             float64 `json:"mileageRate" validate:"gte=0"`
	HomeAddress             string  `json:"homeAddress,omitempty"`
	HomePlaceID             string  `json:"homePlaceId,omitempty"`
	DefaultBagFeeSingle     float64 `json:"defaultBagFeeSingle" validate:"gte=0"`
	DefaultBagFeeDouble     float64 `json:"defaultBagFeeDouble" validate:"gte=0"`
	DefaultBagFeeForecaddie float64 `json:"defaultBagFeeForecaddie" validate:"gte=0"`
}

func (r SettingsRequest) Raw() ledger.RawRecord {
	return ledger.RawRecord{
		"mileageRate":             r.MileageRate,
		"homeAddress":             r.HomeAddress,
		"homePlaceId":             r.HomePlaceID,
		"defaultBagFeeSingle":     r.DefaultBagFeeSingle,
		"defaultBagFeeDouble":     r.DefaultBagFeeDouble,
		"defaultBagFeeForecaddie": r.DefaultBagFeeForecaddie,
	}
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// LoopDTO represents a canonical loop in API responses.
type LoopDTO struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	Course       string  `json:"course"`
	PlaceID      string  `json:"placeId,omitempty"`
	LoopType     string  `json:"loopType"`
	BagFee       float64 `json:"bagFee"`
	CashTip      float64 `json:"cashTip"`
	DigitalTip   float64 `json:"digitalTip"`
	PreGrat      float64 `json:"preGrat"`
	Total        float64 `json:"total"`
	ReportTime   string  `json:"reportTime,omitempty"`
	TeeTime      string  `json:"teeTime,omitempty"`
	EndTime      string  `json:"endTime,omitempty"`
	MileageMiles float64 `json:"mileageMiles"`
	MileageCost  float64 `json:"mileageCost"`
}

func toLoopDTO(l ledger.Loop) LoopDTO {
	return LoopDTO{
		ID:           l.ID,
		Date:         l.Date,
		Course:       l.Course,
		PlaceID:      l.PlaceID,
		LoopType:     l.LoopType,
		BagFee:       money(l.BagFee),
		CashTip:      money(l.CashTip),
		DigitalTip:   money(l.DigitalTip),
		PreGrat:      money(l.PreGrat),
		Total:        money(l.Total()),
		ReportTime:   l.ReportTime,
		TeeTime:      l.TeeTime,
		EndTime:      l.EndTime,
		MileageMiles: l.MileageMiles.InexactFloat64(),
		MileageCost:  money(l.MileageCost),
	}
}

func toLoopDTOs(loops []ledger.Loop) []LoopDTO {
	dtos := make([]LoopDTO, 0, len(loops))
	for _, l := range loops {
		dtos = append(dtos, toLoopDTO(l))
	}
	return dtos
}

// ExpenseDTO represents a canonical expense in API responses.
type ExpenseDTO struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Vendor      string  `json:"vendor,omitempty"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	ReceiptName string  `json:"receiptName,omitempty"`
	ReceiptRef  string  `json:"receiptRef,omitempty"`
}

func toExpenseDTO(e ledger.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:          e.ID,
		Date:        e.Date,
		Vendor:      e.Vendor,
		Description: e.Description,
		Category:    e.Category,
		Amount:      money(e.Amount),
		ReceiptName: e.ReceiptName,
		ReceiptRef:  e.ReceiptRef,
	}
}

func toExpenseDTOs(expenses []ledger.Expense) []ExpenseDTO {
	dtos := make([]ExpenseDTO, 0, len(expenses))
	for _, e := range expenses {
		dtos = append(dtos, toExpenseDTO(e))
	}
	return dtos
}

// SettingsDTO represents the settings record in API responses.
type SettingsDTO struct {
	MileageRate             float64 `json:"mileageRate"`
	HomeAddress             string  `json:"homeAddress,omitempty"`
	HomePlaceID             string  `json:"homePlaceId,omitempty"`
	DefaultBagFeeSingle     float64 `json:"defaultBagFeeSingle"`
	DefaultBagFeeDouble     float64 `json:"defaultBagFeeDouble"`
	DefaultBagFeeForecaddie float64 `json:"defaultBagFeeForecaddie"`
}

func toSettingsDTO(s ledger.Settings) SettingsDTO {
	return SettingsDTO{
		MileageRate:             s.MileageRate.InexactFloat64(),
		HomeAddress:             s.HomeAddress,
		HomePlaceID:             s.HomePlaceID,
		DefaultBagFeeSingle:     money(s.DefaultBagFeeSingle),
		DefaultBagFeeDouble:     money(s.DefaultBagFeeDouble),
		DefaultBagFeeForecaddie: money(s.DefaultBagFeeForecaddie),
	}
}

// SummaryDTO is the income/expense report for one range.
type SummaryDTO struct {
	Range     string `json:"range"`
	LoopCount int    `json:"loopCount"`

	BagFees     float64 `json:"bagFees"`
	CashTips    float64 `json:"cashTips"`
	DigitalTips float64 `json:"digitalTips"`
	PreGrats    float64 `json:"preGrats"`
	TotalIncome float64 `json:"totalIncome"`

	TipsPct       int64 `json:"tipsPct"`
	BagFeePct     int64 `json:"bagFeePct"`
	CashTipPct    int64 `json:"cashTipPct"`
	DigitalTipPct int64 `json:"digitalTipPct"`
	PreGratPct    int64 `json:"preGratPct"`

	AvgEarningsPerLoop float64 `json:"avgEarningsPerLoop"`

	MileageMiles float64 `json:"mileageMiles"`
	MileageCost  float64 `json:"mileageCost"`

	ExpenseCount      int                `json:"expenseCount"`
	TotalExpenses     float64            `json:"totalExpenses"`
	ExpenseByCategory map[string]float64 `json:"expenseByCategory"`

	Net float64 `json:"net"`
}

// InsightsDTO is the per-loop-type report for one range.
type InsightsDTO struct {
	Range    string `json:"range"`
	LoopType string `json:"loopType"`

	LoopCount          int     `json:"loopCount"`
	TotalIncome        float64 `json:"totalIncome"`
	TipsPct            int64   `json:"tipsPct"`
	AvgEarningsPerLoop float64 `json:"avgEarningsPerLoop"`

	PerHourOverall float64 `json:"perHourOverall"`
	PerHourOnBag   float64 `json:"perHourOnBag"`

	AvgWaitMinutes float64 `json:"avgWaitMinutes"`
	AvgPaceMinutes float64 `json:"avgPaceMinutes"`
	AvgWait        string  `json:"avgWait"`
	AvgPace        string  `json:"avgPace"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// money renders a decimal as a two-decimal JSON number.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
