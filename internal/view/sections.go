package view

import (
	"fmt"
	"strings"

	"taxclient/internal/forms"
	"taxclient/internal/model"
)

// Sections maps resource keys to their rendering.
var Sections = map[string]Section{
	"/api/itr-forms":       {Title: "ITR Filings", Empty: "No ITR filings yet", Body: itrBody},
	"/api/gst-returns":     {Title: "GST Returns", Empty: "No GST returns yet", Body: gstBody},
	"/api/tds-returns":     {Title: "TDS Returns", Empty: "No TDS returns yet", Body: tdsBody},
	"/api/documents":       {Title: "Documents", Empty: "No documents uploaded", Body: documentsBody},
	"/api/experts":         {Title: "Tax Experts", Empty: "No experts available", Body: expertsBody},
	"/api/consultations":   {Title: "Consultations", Empty: "No consultations yet", Body: consultationsBody},
	"/api/pricing-plans":   {Title: "Pricing", Empty: "No plans available", Body: plansBody},
	"/api/dashboard-stats": {Title: "Overview", Body: statsBody, IsEmpty: func(any) bool { return false }},
	"/api/auth/user":       {Title: "Account", Body: userBody, IsEmpty: func(any) bool { return false }},
}

func SectionFor(key string) Section {
	if section, ok := Sections[key]; ok {
		return section
	}
	return Section{Title: key, Body: func(value any) string { return fmt.Sprint(value) }}
}

func itrBody(value any) string {
	items, _ := value.([]model.ItrForm)
	lines := make([]string, 0, len(items))
	for _, form := range items {
		lines = append(lines, fmt.Sprintf("%s  AY %s  taxable %s  %s",
			form.FormType, form.AssessmentYear, Rupees(forms.TaxableIncome(form.FormData)), Badge(form.Status)))
	}
	return strings.Join(lines, "\n")
}

func gstBody(value any) string {
	items, _ := value.([]model.GstReturn)
	lines := make([]string, 0, len(items))
	for _, ret := range items {
		lines = append(lines, fmt.Sprintf("%s  %s  %s  tax %s  %s",
			ret.ReturnType, ret.Period, ret.GSTIN, Rupees(forms.GstTotalTax(ret.ReturnData)), Badge(ret.Status)))
	}
	return strings.Join(lines, "\n")
}

func tdsBody(value any) string {
	items, _ := value.([]model.TdsReturn)
	lines := make([]string, 0, len(items))
	for _, ret := range items {
		lines = append(lines, fmt.Sprintf("%s  %s FY %s  deducted %s  %s",
			ret.FormType, ret.Quarter, ret.FinancialYear, Rupees(ret.ReturnData.TotalTdsDeducted), Badge(ret.Status)))
	}
	return strings.Join(lines, "\n")
}

func documentsBody(value any) string {
	items, _ := value.([]model.Document)
	lines := make([]string, 0, len(items))
	for _, doc := range items {
		lines = append(lines, fmt.Sprintf("%s  (%s, %d KB)", doc.Name, doc.Category, doc.Size/1024))
	}
	return strings.Join(lines, "\n")
}

func expertsBody(value any) string {
	items, _ := value.([]model.Expert)
	lines := make([]string, 0, len(items))
	for _, expert := range items {
		line := expert.FullName() + "  " + mutedStyle.Render(expert.Email)
		if len(expert.Specializations) > 0 {
			line += "  " + strings.Join(expert.Specializations, ", ")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func consultationsBody(value any) string {
	items, _ := value.([]model.Consultation)
	lines := make([]string, 0, len(items))
	for _, c := range items {
		scheduled := c.ScheduledDate
		if scheduled == "" {
			scheduled = "No date scheduled"
		}
		lines = append(lines, fmt.Sprintf("%s with %s  %s  %s", c.ServiceType, c.ExpertID, scheduled, Badge(c.Status)))
	}
	return strings.Join(lines, "\n")
}

func plansBody(value any) string {
	items, _ := value.([]model.PricingPlan)
	lines := make([]string, 0, len(items))
	for _, plan := range items {
		line := fmt.Sprintf("%s  %s", plan.Name, Price(plan.Price))
		if plan.IsPopular {
			line += "  " + titleStyle.Render("Most Popular")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func statsBody(value any) string {
	stats, _ := value.(model.DashboardStats)
	var b strings.Builder
	fmt.Fprintf(&b, "Expected refund  %s\n", Rupees(stats.ExpectedRefund))
	fmt.Fprintf(&b, "ITR forms %d  GST returns %d  TDS returns %d  Documents %d\n",
		stats.TotalItrForms, stats.TotalGstReturns, stats.TotalTdsReturns, stats.TotalDocuments)
	fmt.Fprintf(&b, "Filing progress  %s", Percent(forms.CompletionPercentage(stats)))
	if len(stats.RecentForms) == 0 {
		b.WriteString("\n" + mutedStyle.Render("No recent activity"))
		return b.String()
	}
	for _, form := range stats.RecentForms {
		filed := "Draft"
		if form.FilingDate != "" {
			filed = "Filed on " + form.FilingDate
		}
		fmt.Fprintf(&b, "\n%s  %s  %s", form.FormType, filed, Badge(form.Status))
	}
	return b.String()
}

func userBody(value any) string {
	user, _ := value.(model.User)
	return fmt.Sprintf("%s <%s> (%s)", user.FullName(), user.Email, user.Role)
}
