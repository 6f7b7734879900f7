package api

import (
	"context"
	"net/http"
	"net/url"

	"taxclient/internal/cache"
	"taxclient/internal/forms"
	"taxclient/internal/model"
)

func (c *Client) AuthUser(ctx context.Context) (model.User, cache.State, error) {
	return Get[model.User](ctx, c, KeyAuthUser)
}

func (c *Client) DashboardStats(ctx context.Context) (model.DashboardStats, cache.State, error) {
	return Get[model.DashboardStats](ctx, c, KeyDashboardStats)
}

func (c *Client) ItrForms(ctx context.Context) ([]model.ItrForm, cache.State, error) {
	return Get[[]model.ItrForm](ctx, c, KeyItrForms)
}

func (c *Client) GstReturns(ctx context.Context) ([]model.GstReturn, cache.State, error) {
	return Get[[]model.GstReturn](ctx, c, KeyGstReturns)
}

func (c *Client) TdsReturns(ctx context.Context) ([]model.TdsReturn, cache.State, error) {
	return Get[[]model.TdsReturn](ctx, c, KeyTdsReturns)
}

func (c *Client) Documents(ctx context.Context) ([]model.Document, cache.State, error) {
	return Get[[]model.Document](ctx, c, KeyDocuments)
}

func (c *Client) Experts(ctx context.Context) ([]model.Expert, cache.State, error) {
	return Get[[]model.Expert](ctx, c, KeyExperts)
}

func (c *Client) Consultations(ctx context.Context) ([]model.Consultation, cache.State, error) {
	return Get[[]model.Consultation](ctx, c, KeyConsultations)
}

func (c *Client) PricingPlans(ctx context.Context) ([]model.PricingPlan, cache.State, error) {
	return Get[[]model.PricingPlan](ctx, c, KeyPricingPlans)
}

// CreateItrForm validates input and files it. A validation failure never
// reaches the backend.
func (c *Client) CreateItrForm(ctx context.Context, input model.ItrFormInput) (model.ItrForm, error) {
	input, err := forms.ValidateItrForm(input)
	if err != nil {
		return model.ItrForm{}, err
	}
	var created model.ItrForm
	err = c.mutate(ctx, OpCreateItr, http.MethodPost, KeyItrForms, input, &created)
	return created, err
}

func (c *Client) UpdateItrForm(ctx context.Context, id string, input model.ItrFormInput) (model.ItrForm, error) {
	input, err := forms.ValidateItrForm(input)
	if err != nil {
		return model.ItrForm{}, err
	}
	var updated model.ItrForm
	err = c.mutate(ctx, OpUpdateItr, http.MethodPut, KeyItrForms+"/"+url.PathEscape(id), input, &updated)
	return updated, err
}

func (c *Client) CreateGstReturn(ctx context.Context, input model.GstReturnInput) (model.GstReturn, error) {
	input, err := forms.ValidateGstReturn(input)
	if err != nil {
		return model.GstReturn{}, err
	}
	var created model.GstReturn
	err = c.mutate(ctx, OpCreateGst, http.MethodPost, KeyGstReturns, input, &created)
	return created, err
}

func (c *Client) CreateTdsReturn(ctx context.Context, input model.TdsReturnInput) (model.TdsReturn, error) {
	input, err := forms.ValidateTdsReturn(input)
	if err != nil {
		return model.TdsReturn{}, err
	}
	var created model.TdsReturn
	err = c.mutate(ctx, OpCreateTds, http.MethodPost, KeyTdsReturns, input, &created)
	return created, err
}

func (c *Client) BookConsultation(ctx context.Context, input model.ConsultationInput) (model.Consultation, error) {
	input, err := forms.ValidateConsultation(input)
	if err != nil {
		return model.Consultation{}, err
	}
	var booked model.Consultation
	err = c.mutate(ctx, OpBookConsultation, http.MethodPost, KeyConsultations, input, &booked)
	return booked, err
}
