// Package http exposes the reservation and tenant services as a JSON API.
// Anonymous callers may create reservations, check in, and request tenant
// tokens; everything under /innkeeper requires the innkeeper wallet's token.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/openroost/gatehouse/internal/app"
	"github.com/openroost/gatehouse/internal/auth"
	"github.com/openroost/gatehouse/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// ReservationResponse is the API representation of a reservation. Token
// material never appears here; the state reflects expiry at read time.
type ReservationResponse struct {
	ReservationID string `json:"reservation_id" doc:"Unique identifier"`
	TenantName    string `json:"tenant_name" doc:"Requested tenant name"`
	TenantReason  string `json:"tenant_reason" doc:"Why the tenant is needed"`
	ContactName   string `json:"contact_name" doc:"Requester contact name"`
	ContactEmail  string `json:"contact_email" doc:"Requester contact email"`
	ContactPhone  string `json:"contact_phone" doc:"Requester contact phone"`
	State         string `json:"state" doc:"Lifecycle state"`
	WalletID      string `json:"wallet_id,omitempty" doc:"Wallet created at check-in"`
	TenantID      string `json:"tenant_id,omitempty" doc:"Tenant created at check-in"`
	CreatedAt     string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt     string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toReservationResponse(rec domain.Reservation, now time.Time) ReservationResponse {
	return ReservationResponse{
		ReservationID: rec.ID,
		TenantName:    rec.TenantName,
		TenantReason:  rec.TenantReason,
		ContactName:   rec.ContactName,
		ContactEmail:  rec.ContactEmail,
		ContactPhone:  rec.ContactPhone,
		State:         string(rec.EffectiveState(now)),
		WalletID:      rec.WalletID,
		TenantID:      rec.TenantID,
		CreatedAt:     rec.CreatedAt.Format(timeFormat),
		UpdatedAt:     rec.UpdatedAt.Format(timeFormat),
	}
}

// TenantResponse is the API representation of a tenant.
type TenantResponse struct {
	TenantID   string `json:"tenant_id" doc:"Unique identifier"`
	TenantName string `json:"tenant_name" doc:"Display name"`
	WalletID   string `json:"wallet_id" doc:"Bound wallet"`
	CreatedAt  string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt  string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toTenantResponse(t domain.Tenant) TenantResponse {
	return TenantResponse{
		TenantID:   t.ID,
		TenantName: t.Name,
		WalletID:   t.WalletID,
		CreatedAt:  t.CreatedAt.Format(timeFormat),
		UpdatedAt:  t.UpdatedAt.Format(timeFormat),
	}
}

// --- Create Reservation ---

type CreateReservationInput struct {
	Body struct {
		TenantName   string `json:"tenant_name" minLength:"1" maxLength:"255" doc:"Requested tenant name"`
		TenantReason string `json:"tenant_reason" minLength:"1" doc:"Why the tenant is needed"`
		ContactName  string `json:"contact_name" minLength:"1" doc:"Requester contact name"`
		ContactEmail string `json:"contact_email" minLength:"1" format:"email" doc:"Requester contact email"`
		ContactPhone string `json:"contact_phone" minLength:"1" doc:"Requester contact phone"`
	}
}

type CreateReservationOutput struct {
	Body struct {
		ReservationID string `json:"reservation_id" doc:"Identifier to quote when checking in"`
	}
}

// --- Check In ---

type CheckInInput struct {
	ReservationID string `path:"reservation_id" doc:"Reservation ID"`
	Body          struct {
		ReservationPwd string `json:"reservation_pwd" minLength:"1" doc:"One-time password from approval"`
	}
}

type CheckInOutput struct {
	Body struct {
		WalletID  string `json:"wallet_id" doc:"Provisioned wallet"`
		WalletKey string `json:"wallet_key,omitempty" doc:"Wallet key, shown only here"`
		Token     string `json:"token" doc:"First auth token"`
	}
}

// --- Tenant Token ---

type TenantTokenInput struct {
	TenantID string `path:"tenant_id" doc:"Tenant ID"`
	Body     struct {
		WalletKey string `json:"wallet_key,omitempty" doc:"Required when the wallet holds its key externally"`
	}
}

type TenantTokenOutput struct {
	Body struct {
		Token string `json:"token" doc:"Fresh auth token"`
	}
}

// --- Self ---

type SelfOutput struct {
	Body TenantResponse
}

// --- Innkeeper: reservations ---

type ListReservationsOutput struct {
	Body struct {
		Results []ReservationResponse `json:"results"`
	}
}

type ApproveInput struct {
	ReservationID string `path:"reservation_id" doc:"Reservation ID"`
}

type ApproveOutput struct {
	Body struct {
		ReservationPwd string `json:"reservation_pwd" doc:"One-time check-in password, shown only here"`
	}
}

type RejectInput struct {
	ReservationID string `path:"reservation_id" doc:"Reservation ID"`
}

type RejectOutput struct {
	Body ReservationResponse
}

// --- Innkeeper: tenants ---

type ListTenantsOutput struct {
	Body struct {
		Results []TenantResponse `json:"results"`
	}
}

type GetTenantInput struct {
	TenantID string `path:"tenant_id" doc:"Tenant ID"`
}

type GetTenantOutput struct {
	Body TenantResponse
}

// Register adds all API routes to the Huma API.
func Register(api huma.API, reservations *app.ReservationService, tenants *app.TenantService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-reservation",
		Method:      http.MethodPost,
		Path:        "/multitenancy/reservations",
		Summary:     "Request a tenant reservation",
		Tags:        []string{"Reservations"},
	}, func(ctx context.Context, input *CreateReservationInput) (*CreateReservationOutput, error) {
		rec, err := reservations.Create(ctx, domain.ReservationRequest{
			TenantName:   input.Body.TenantName,
			TenantReason: input.Body.TenantReason,
			ContactName:  input.Body.ContactName,
			ContactEmail: input.Body.ContactEmail,
			ContactPhone: input.Body.ContactPhone,
		})
		if err != nil {
			return nil, toHumaError(ctx, err)
		}

		out := &CreateReservationOutput{}
		out.Body.ReservationID = rec.ID
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-in",
		Method:      http.MethodPost,
		Path:        "/multitenancy/reservations/{reservation_id}/check-in",
		Summary:     "Redeem an approved reservation",
		Tags:        []string{"Reservations"},
	}, func(ctx context.Context, input *CheckInInput) (*CheckInOutput, error) {
		_, wallet, token, err := reservations.CheckIn(ctx, input.ReservationID, input.Body.ReservationPwd)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}

		out := &CheckInOutput{}
		out.Body.WalletID = wallet.ID
		out.Body.WalletKey = wallet.Key
		out.Body.Token = token
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tenant-token",
		Method:      http.MethodPost,
		Path:        "/multitenancy/tenant/{tenant_id}/token",
		Summary:     "Issue a fresh auth token for a tenant's wallet",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *TenantTokenInput) (*TenantTokenOutput, error) {
		token, err := tenants.CreateToken(ctx, input.TenantID, input.Body.WalletKey)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}

		out := &TenantTokenOutput{}
		out.Body.Token = token
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-self",
		Method:      http.MethodGet,
		Path:        "/tenant",
		Summary:     "Get the calling tenant's own record",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, _ *struct{}) (*SelfOutput, error) {
		identity, err := requireTenant(ctx)
		if err != nil {
			return nil, err
		}

		tenant, err := tenants.GetByWallet(ctx, identity.WalletID)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &SelfOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "innkeeper-list-reservations",
		Method:      http.MethodGet,
		Path:        "/innkeeper/reservations",
		Summary:     "List all reservations",
		Tags:        []string{"Innkeeper"},
	}, func(ctx context.Context, _ *struct{}) (*ListReservationsOutput, error) {
		if err := requireInnkeeper(ctx); err != nil {
			return nil, err
		}

		recs, err := reservations.List(ctx)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}

		now := time.Now().UTC()
		out := &ListReservationsOutput{}
		out.Body.Results = make([]ReservationResponse, len(recs))
		for i, rec := range recs {
			out.Body.Results[i] = toReservationResponse(rec, now)
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "innkeeper-approve-reservation",
		Method:      http.MethodPut,
		Path:        "/innkeeper/reservations/{reservation_id}/approve",
		Summary:     "Approve a reservation and mint its one-time password",
		Tags:        []string{"Innkeeper"},
	}, func(ctx context.Context, input *ApproveInput) (*ApproveOutput, error) {
		if err := requireInnkeeper(ctx); err != nil {
			return nil, err
		}

		pwd, _, err := reservations.Approve(ctx, input.ReservationID)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}

		out := &ApproveOutput{}
		out.Body.ReservationPwd = pwd
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "innkeeper-reject-reservation",
		Method:      http.MethodPut,
		Path:        "/innkeeper/reservations/{reservation_id}/reject",
		Summary:     "Reject a reservation",
		Tags:        []string{"Innkeeper"},
	}, func(ctx context.Context, input *RejectInput) (*RejectOutput, error) {
		if err := requireInnkeeper(ctx); err != nil {
			return nil, err
		}

		rec, err := reservations.Reject(ctx, input.ReservationID)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &RejectOutput{Body: toReservationResponse(rec, time.Now().UTC())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "innkeeper-list-tenants",
		Method:      http.MethodGet,
		Path:        "/innkeeper/tenants",
		Summary:     "List all tenants",
		Tags:        []string{"Innkeeper"},
	}, func(ctx context.Context, _ *struct{}) (*ListTenantsOutput, error) {
		if err := requireInnkeeper(ctx); err != nil {
			return nil, err
		}

		all, err := tenants.List(ctx)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}

		out := &ListTenantsOutput{}
		out.Body.Results = make([]TenantResponse, len(all))
		for i, t := range all {
			out.Body.Results[i] = toTenantResponse(t)
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "innkeeper-get-tenant",
		Method:      http.MethodGet,
		Path:        "/innkeeper/tenants/{tenant_id}",
		Summary:     "Get a tenant by ID",
		Tags:        []string{"Innkeeper"},
	}, func(ctx context.Context, input *GetTenantInput) (*GetTenantOutput, error) {
		if err := requireInnkeeper(ctx); err != nil {
			return nil, err
		}

		tenant, err := tenants.Get(ctx, input.TenantID)
		if err != nil {
			return nil, toHumaError(ctx, err)
		}
		return &GetTenantOutput{Body: toTenantResponse(tenant)}, nil
	})
}

// requireInnkeeper admits only the innkeeper wallet's token.
func requireInnkeeper(ctx context.Context) error {
	identity, ok := auth.FromContext(ctx)
	if !ok || !identity.Innkeeper {
		return huma.Error401Unauthorized("innkeeper token required")
	}
	return nil
}

// requireTenant admits any token bound to a tenant.
func requireTenant(ctx context.Context) (auth.Identity, error) {
	identity, ok := auth.FromContext(ctx)
	if !ok || identity.TenantID == "" {
		return auth.Identity{}, huma.Error401Unauthorized("tenant token required")
	}
	return identity, nil
}

// toHumaError translates domain errors to Huma HTTP errors. Internal failures
// are logged with ids only; secrets never reach the log or the response.
func toHumaError(ctx context.Context, err error) error {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return huma.Error422UnprocessableEntity(vErr.Error())
	}

	if errors.Is(err, domain.ErrReservationNotFound) {
		return huma.Error404NotFound("reservation not found")
	}
	if errors.Is(err, domain.ErrTenantNotFound) {
		return huma.Error404NotFound("tenant not found")
	}
	if errors.Is(err, domain.ErrWalletNotFound) {
		return huma.Error404NotFound("wallet not found")
	}

	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return huma.Error401Unauthorized(authErr.Error())
	}
	var expErr *domain.ExpiredError
	if errors.As(err, &expErr) {
		return huma.Error401Unauthorized(expErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error409Conflict(trErr.Error())
	}
	var stErr *domain.StateError
	if errors.As(err, &stErr) {
		return huma.Error409Conflict(stErr.Error())
	}

	slog.ErrorContext(ctx, "request failed", "error", err)
	return huma.Error500InternalServerError("internal server error")
}
