package api

import (
	"encoding/json"
	"fmt"

	"taxclient/internal/model"
)

const (
	KeyAuthUser       = "/api/auth/user"
	KeyDashboardStats = "/api/dashboard-stats"
	KeyItrForms       = "/api/itr-forms"
	KeyGstReturns     = "/api/gst-returns"
	KeyTdsReturns     = "/api/tds-returns"
	KeyDocuments      = "/api/documents"
	KeyExperts        = "/api/experts"
	KeyConsultations  = "/api/consultations"
	KeyPricingPlans   = "/api/pricing-plans"
)

const (
	OpCreateItr        = "itr.create"
	OpUpdateItr        = "itr.update"
	OpCreateGst        = "gst.create"
	OpCreateTds        = "tds.create"
	OpBookConsultation = "consultation.book"
)

// Invalidations lists the keys each successful mutation makes stale.
var Invalidations = map[string][]string{
	OpCreateItr:        {KeyItrForms, KeyDashboardStats},
	OpUpdateItr:        {KeyItrForms, KeyDashboardStats},
	OpCreateGst:        {KeyGstReturns, KeyDashboardStats},
	OpCreateTds:        {KeyTdsReturns, KeyDashboardStats},
	OpBookConsultation: {KeyConsultations},
}

var FailureMessages = map[string]string{
	OpCreateItr:        "Failed to create ITR form",
	OpUpdateItr:        "Failed to update ITR form",
	OpCreateGst:        "Failed to create GST return",
	OpCreateTds:        "Failed to create TDS return",
	OpBookConsultation: "Failed to book consultation",
}

var SuccessMessages = map[string]string{
	OpCreateItr:        "ITR form created successfully",
	OpUpdateItr:        "ITR form updated successfully",
	OpCreateGst:        "GST return created successfully",
	OpCreateTds:        "TDS return created successfully",
	OpBookConsultation: "Consultation booked successfully",
}

// publicKeys are readable without a session.
var publicKeys = map[string]bool{
	KeyPricingPlans: true,
}

type decoder func(data []byte) (any, error)

var decoders = map[string]decoder{
	KeyAuthUser:       decodeAs[model.User],
	KeyDashboardStats: decodeAs[model.DashboardStats],
	KeyItrForms:       decodeAs[[]model.ItrForm],
	KeyGstReturns:     decodeAs[[]model.GstReturn],
	KeyTdsReturns:     decodeAs[[]model.TdsReturn],
	KeyDocuments:      decodeAs[[]model.Document],
	KeyExperts:        decodeAs[[]model.Expert],
	KeyConsultations:  decodeAs[[]model.Consultation],
	KeyPricingPlans:   decodeAs[[]model.PricingPlan],
}

// Keys returns every resource key the client knows how to decode.
func Keys() []string {
	return []string{
		KeyAuthUser, KeyDashboardStats, KeyItrForms, KeyGstReturns, KeyTdsReturns,
		KeyDocuments, KeyExperts, KeyConsultations, KeyPricingPlans,
	}
}

func decodeAs[T any](data []byte) (any, error) {
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("decode %T: %w", value, err)
	}
	return value, nil
}

// decodeRaw is used for keys without a registered type.
func decodeRaw(data []byte) (any, error) {
	return json.RawMessage(append([]byte(nil), data...)), nil
}
