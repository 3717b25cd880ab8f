package models

import (
	"math"
	"strconv"
	"strings"
)

type HourlyCohort string

const (
	CohortCurrentDay HourlyCohort = "DAY-0"
	CohortPriorDay   HourlyCohort = "DAY-1"
	CohortPriorWeek  HourlyCohort = "DAY-7"
)

// HourlyMetricRow is one row of the hourly funnel metrics table. Metric
// columns are stored as varchar upstream and may be empty, "null" or "NaN";
// use ParseMetricValue before doing arithmetic on them.
type HourlyMetricRow struct {
	Date                    string       `json:"dt" db:"dt"`
	Hour                    string       `json:"hour" db:"hour"`
	Cohort                  HourlyCohort `json:"cohort" db:"cohort"`
	ApplicationsCreated     *string      `json:"applications_created" db:"applications_created"`
	ApplicationsSubmitted   *string      `json:"applications_submitted" db:"applications_submitted"`
	ApplicationsPending     *string      `json:"applications_pending" db:"applications_pending"`
	ApplicationsNached      *string      `json:"applications_nached" db:"applications_nached"`
	AutopayDoneApplications *string      `json:"autopay_done_applications" db:"autopay_done_applications"`
	ApplicationsApproved    *string      `json:"applications_approved" db:"applications_approved"`
}

// DailyMetricRow is one row of the day-by-day amount metrics table.
type DailyMetricRow struct {
	Date                string  `json:"dt" db:"dt"`
	Eligible            *string `json:"eligible" db:"eligible"`
	Started             *string `json:"started" db:"started"`
	ShopDetailsPage     *string `json:"shop_details_page" db:"shop_details_page"`
	ShopPhoto           *string `json:"shop_photo" db:"shop_photo"`
	KycInitiated        *string `json:"kyc_initiated" db:"kyc_initiated"`
	KycCompleted        *string `json:"kyc_completed" db:"kyc_completed"`
	AddDetailsSubmitted *string `json:"add_detials_submitted" db:"add_detials_submitted"`
	RefPageSubmitted    *string `json:"ref_page_submitted" db:"ref_page_submitted"`
	Submitted           *string `json:"submitted" db:"submitted"`
	NachInitiated       *string `json:"nach_initiated" db:"nach_initiated"`
	NachDone            *string `json:"nach_done" db:"nach_done"`
	Processed           *string `json:"processed" db:"processed"`
	Approved            *string `json:"approved" db:"approved"`
	Disbursed           *string `json:"disbursed" db:"disbursed"`
}

var hourlyMetricFields = []string{
	"applications_created",
	"applications_submitted",
	"applications_pending",
	"applications_nached",
	"autopay_done_applications",
	"applications_approved",
}

var dailyMetricFields = []string{
	"eligible",
	"started",
	"shop_details_page",
	"shop_photo",
	"kyc_initiated",
	"kyc_completed",
	"add_detials_submitted",
	"ref_page_submitted",
	"submitted",
	"nach_initiated",
	"nach_done",
	"processed",
	"approved",
	"disbursed",
}

func HourlyMetricFields() []string {
	return append([]string{}, hourlyMetricFields...)
}

func DailyMetricFields() []string {
	return append([]string{}, dailyMetricFields...)
}

func IsHourlyMetricField(name string) bool {
	for _, f := range hourlyMetricFields {
		if f == name {
			return true
		}
	}
	return false
}

func IsDailyMetricField(name string) bool {
	for _, f := range dailyMetricFields {
		if f == name {
			return true
		}
	}
	return false
}

// Metric returns the raw value of the named metric column. The second return
// value is false for unknown column names.
func (r *HourlyMetricRow) Metric(name string) (*string, bool) {
	switch name {
	case "applications_created":
		return r.ApplicationsCreated, true
	case "applications_submitted":
		return r.ApplicationsSubmitted, true
	case "applications_pending":
		return r.ApplicationsPending, true
	case "applications_nached":
		return r.ApplicationsNached, true
	case "autopay_done_applications":
		return r.AutopayDoneApplications, true
	case "applications_approved":
		return r.ApplicationsApproved, true
	}
	return nil, false
}

func (r *DailyMetricRow) Metric(name string) (*string, bool) {
	switch name {
	case "eligible":
		return r.Eligible, true
	case "started":
		return r.Started, true
	case "shop_details_page":
		return r.ShopDetailsPage, true
	case "shop_photo":
		return r.ShopPhoto, true
	case "kyc_initiated":
		return r.KycInitiated, true
	case "kyc_completed":
		return r.KycCompleted, true
	case "add_detials_submitted":
		return r.AddDetailsSubmitted, true
	case "ref_page_submitted":
		return r.RefPageSubmitted, true
	case "submitted":
		return r.Submitted, true
	case "nach_initiated":
		return r.NachInitiated, true
	case "nach_done":
		return r.NachDone, true
	case "processed":
		return r.Processed, true
	case "approved":
		return r.Approved, true
	case "disbursed":
		return r.Disbursed, true
	}
	return nil, false
}

// ParseMetricValue coerces a raw varchar metric value to a finite float64.
// It never fails: nil, empty, "null" and "NaN" all parse to 0, as does
// anything with no usable numeric content.
func ParseMetricValue(raw *string) float64 {
	if raw == nil {
		return 0
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return 0
	}
	lowered := strings.ToLower(trimmed)
	if lowered == "null" || lowered == "nan" {
		return 0
	}

	if v, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(v, 0) && !math.IsNaN(v) {
		return v
	}

	// Permissive fallback: accept a leading numeric prefix the way a
	// lenient float parser would, e.g. "12.5%" -> 12.5.
	if prefix := numericPrefix(trimmed); prefix != "" {
		if v, err := strconv.ParseFloat(prefix, 64); err == nil && !math.IsInf(v, 0) && !math.IsNaN(v) {
			return v
		}
	}
	return 0
}

func numericPrefix(s string) string {
	end := len(s)
	for i, c := range s {
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' ||
			((c == '+' || c == '-') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E')) {
			continue
		}
		end = i
		break
	}
	// Back off trailing characters that cannot end a float literal.
	prefix := s[:end]
	for len(prefix) > 0 {
		if _, err := strconv.ParseFloat(prefix, 64); err == nil {
			return prefix
		}
		prefix = prefix[:len(prefix)-1]
	}
	return ""
}
