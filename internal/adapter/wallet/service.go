// Package wallet is a local stand-in for the platform's wallet subsystem.
// It stores wallet records in the shared SQLite store and mints HS256 bearer
// tokens. Custody internals are out of scope; the core only needs the
// create/get/issue-token collaborator surface.
package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openroost/gatehouse/internal/auth"
	"github.com/openroost/gatehouse/internal/domain"
)

// Compile-time check: Service implements domain.WalletService.
var _ domain.WalletService = (*Service)(nil)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, w domain.Wallet) error
	GetByID(ctx context.Context, id string) (domain.Wallet, error)
	GetInnkeeper(ctx context.Context) (domain.Wallet, error)
	MarkInnkeeper(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// Service implements domain.WalletService.
type Service struct {
	store    Store
	tokens   auth.TokenGenerator
	codec    domain.SecretCodec
	tokenTTL time.Duration

	// unmanaged wallets hold their key externally: the plaintext is
	// returned once at creation and only a salted hash is stored, so
	// every later token request must present the key.
	unmanaged bool
}

// Config holds wallet service settings.
type Config struct {
	TokenTTL  time.Duration
	Unmanaged bool
}

// New creates a wallet service over the given store and token generator.
// The secret codec hashes externally held wallet keys.
func New(store Store, tokens auth.TokenGenerator, codec domain.SecretCodec, cfg Config) *Service {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{
		store:     store,
		tokens:    tokens,
		codec:     codec,
		tokenTTL:  ttl,
		unmanaged: cfg.Unmanaged,
	}
}

// Create provisions a wallet with a fresh random key. The returned Wallet
// carries the plaintext key; for unmanaged wallets this is the only time it
// is available.
func (s *Service) Create(ctx context.Context, name string) (domain.Wallet, error) {
	w := domain.Wallet{
		ID:        uuid.NewString(),
		Name:      name,
		Key:       uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	if s.unmanaged {
		salt, hash, err := s.codec.Hash(w.Key)
		if err != nil {
			return domain.Wallet{}, fmt.Errorf("hashing wallet key: %w", err)
		}
		w.RequiresExternalKey = true
		w.KeySalt = salt
		w.KeyHash = hash
	}

	if err := s.store.Create(ctx, w); err != nil {
		return domain.Wallet{}, err
	}

	return w, nil
}

// Get returns a wallet by id.
func (s *Service) Get(ctx context.Context, id string) (domain.Wallet, error) {
	return s.store.GetByID(ctx, id)
}

// Delete removes a wallet. Used by provisioning compensation.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// IssueToken mints a bearer token bound to the wallet. Wallets that require
// an external key reject a missing or wrong key with an AuthError.
func (s *Service) IssueToken(ctx context.Context, w domain.Wallet, walletKey string) (string, error) {
	if w.RequiresExternalKey {
		if walletKey == "" {
			return "", &domain.AuthError{Reason: fmt.Sprintf("wallet %s requires the wallet key", w.ID)}
		}
		if !s.codec.Verify(walletKey, w.KeySalt, w.KeyHash) {
			return "", &domain.AuthError{Reason: "wallet key incorrect"}
		}
	}

	token, err := s.tokens.Generate(w.ID, s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("generating token for wallet %s: %w", w.ID, err)
	}
	return token, nil
}

// EnsureInnkeeper returns the platform-operator wallet, or reports through
// domain.ErrWalletNotFound that none has been bootstrapped yet.
func (s *Service) EnsureInnkeeper(ctx context.Context) (domain.Wallet, error) {
	return s.store.GetInnkeeper(ctx)
}

// MarkInnkeeper flags a wallet as the platform operator.
func (s *Service) MarkInnkeeper(ctx context.Context, id string) error {
	return s.store.MarkInnkeeper(ctx, id)
}
