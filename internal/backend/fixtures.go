package backend

import (
	"time"

	"taxclient/internal/model"
)

var fixtureTime = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

func fixtureExperts() []model.Expert {
	return []model.Expert{
		{ID: "exp-1", FirstName: "Priya", LastName: "Sharma", Email: "priya.sharma@example.com", Specializations: []string{"ITR Filing", "Tax Planning"}},
		{ID: "exp-2", FirstName: "Rahul", LastName: "Mehta", Email: "rahul.mehta@example.com", Specializations: []string{"GST"}},
		{ID: "exp-3", FirstName: "Anita", LastName: "Rao", Email: "anita.rao@example.com", Specializations: []string{"TDS", "GST"}},
	}
}

func fixturePlans() []model.PricingPlan {
	return []model.PricingPlan{
		{
			ID: "individual-basic", Name: "Individual Basic", UserType: "individual", Price: "0", Active: true,
			Features: []string{"Self ITR-1 filing", "Basic tax calculator", "Form 16 upload", "E-verification support", "Email support"},
		},
		{
			ID: "individual-premium", Name: "Individual Premium", UserType: "individual", Price: "1299", IsPopular: true, Active: true,
			Features: []string{"All ITR forms (1-4)", "Expert review included", "Capital gains support", "Investment optimization", "Priority support", "Refund tracking", "Previous year data import"},
		},
		{
			ID: "expert-pro", Name: "Expert Pro", UserType: "expert", Price: "4999", Active: true,
			Features: []string{"TaxCloud software access", "Unlimited client filings", "Bulk data upload", "Advanced reconciliation", "Client management dashboard", "WhatsApp integration", "Training & certification"},
		},
		{
			ID: "sme-standard", Name: "SME Standard", UserType: "sme", Price: "9999", Active: true,
			Features: []string{"GST returns (GSTR 1-9)", "TDS returns filing", "Invoice management", "Basic reconciliation", "Compliance alerts", "Monthly reports", "Phone support"},
		},
		{
			ID: "enterprise-custom", Name: "Enterprise Custom", UserType: "enterprise", Price: "Custom", Active: true,
			Features: []string{"Complete tax suite", "E-invoicing integration", "Advanced analytics", "Custom integrations", "Dedicated account manager", "24/7 priority support", "On-premise deployment option", "Custom training"},
		},
	}
}

func fixtureDocuments(userID string) []model.Document {
	return []model.Document{
		{ID: "doc-1", UserID: userID, Name: "Form 16 FY 2023-24.pdf", Type: "form16", FileType: "application/pdf", Size: 182340, URL: "/files/doc-1", Category: "itr", CreatedAt: fixtureTime, UpdatedAt: fixtureTime},
		{ID: "doc-2", UserID: userID, Name: "PAN card.jpg", Type: "identity", FileType: "image/jpeg", Size: 94211, URL: "/files/doc-2", Category: "other", CreatedAt: fixtureTime, UpdatedAt: fixtureTime},
	}
}
