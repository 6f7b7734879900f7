package forms

import (
	"time"

	"taxclient/internal/model"
)

func TotalIncome(income model.Income) float64 {
	return income.Salary + income.HouseProperty + income.CapitalGains + income.OtherSources
}

func TotalDeductions(deductions model.Deductions) float64 {
	return deductions.Section80C + deductions.Section80D + deductions.OtherDeductions
}

// TaxableIncome is total income less deductions, floored at zero.
func TaxableIncome(data model.ItrFormData) float64 {
	return max(0, TotalIncome(data.Income)-TotalDeductions(data.Deductions))
}

func GstTotalTax(data model.GstReturnData) float64 {
	return data.IGST + data.CGST + data.SGST + data.Cess
}

// CompletionPercentage counts the four filing categories (ITR, GST, TDS,
// documents) that have at least one record.
func CompletionPercentage(stats model.DashboardStats) float64 {
	completed := 0
	for _, total := range []int{stats.TotalItrForms, stats.TotalGstReturns, stats.TotalTdsReturns, stats.TotalDocuments} {
		if total > 0 {
			completed++
		}
	}
	return float64(completed) / 4 * 100
}

var scheduledLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// NormalizeScheduledDate parses a date-time picker value and returns it
// as a UTC timestamp with millisecond precision. Values without a zone
// are read in local time.
func NormalizeScheduledDate(value string) (string, error) {
	var (
		parsed time.Time
		err    error
	)
	for _, layout := range scheduledLayouts {
		parsed, err = time.ParseInLocation(layout, value, time.Local)
		if err == nil {
			return parsed.UTC().Format("2006-01-02T15:04:05.000Z"), nil
		}
	}
	return "", err
}
