package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openroost/gatehouse/internal/auth"
	"github.com/openroost/gatehouse/internal/domain"
)

// TenantResolver resolves the tenant bound to a wallet. Satisfied by
// app.TenantService.
type TenantResolver interface {
	GetByWallet(ctx context.Context, walletID string) (domain.Tenant, error)
}

// Authenticate resolves the caller's identity from the Bearer token and stores
// it in the request context. Requests without an Authorization header pass
// through anonymously; a header that is present but unverifiable is rejected
// outright.
func Authenticate(verifier auth.TokenVerifier, wallets domain.WalletService, tenants TenantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeUnauthorized(w, "authorization header must use the Bearer scheme")
				return
			}

			walletID, err := verifier.Verify(token)
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			wallet, err := wallets.Get(r.Context(), walletID)
			if err != nil {
				writeUnauthorized(w, "token subject unknown")
				return
			}

			identity := auth.Identity{
				WalletID:  wallet.ID,
				Innkeeper: wallet.Innkeeper,
			}

			// The innkeeper wallet has a tenant too; only a genuinely
			// unbound wallet leaves TenantID empty.
			tenant, err := tenants.GetByWallet(r.Context(), wallet.ID)
			switch {
			case err == nil:
				identity.TenantID = tenant.ID
			case errors.Is(err, domain.ErrTenantNotFound):
			default:
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"title":"Unauthorized","status":401,"detail":%q}`+"\n", detail)
}
