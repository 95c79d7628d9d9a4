package drive

import (
	"context"
	"fmt"
	"time"

	"chmura-plikow/internal/database"
	"chmura-plikow/internal/models"

	"github.com/jaevor/go-nanoid"
)

// ShareRegistry wydaje i rozwiązuje tokeny udostępnień. Mapowanie
// token -> element trzymane jest w tej samej bazie co metadane, więc
// przeżywa restart procesu. Każde wywołanie Issue bije świeży token;
// starych tokenów nie da się unieważnić.
type ShareRegistry struct {
	store    *database.Store
	ttl      time.Duration
	newToken func() string
}

// NewShareRegistry tworzy rejestr. ttl == 0 oznacza tokeny bezterminowe.
func NewShareRegistry(store *database.Store, ttl time.Duration) (*ShareRegistry, error) {
	// 32 znaki nanoid to ~190 bitów entropii — dużo powyżej wymaganych 128
	generate, err := nanoid.Standard(32)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize nanoid generator: %w", err)
	}

	return &ShareRegistry{
		store:    store,
		ttl:      ttl,
		newToken: generate,
	}, nil
}

func (r *ShareRegistry) Issue(ctx context.Context, itemType string, itemID string) (*models.ShareToken, error) {
	var expiresAt *time.Time
	if r.ttl > 0 {
		t := time.Now().Add(r.ttl)
		expiresAt = &t
	}

	token, err := r.store.CreateShareToken(ctx, database.CreateShareTokenParams{
		Token:     r.newToken(),
		ItemType:  itemType,
		ItemID:    itemID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}

	return token, nil
}

// Resolve zwraca mapowanie dla tokenu. Token nieznany albo przeterminowany
// zgłaszany jest jako ErrNotFound — wołający nie rozróżnia tych przypadków.
func (r *ShareRegistry) Resolve(ctx context.Context, tokenValue string) (*models.ShareToken, error) {
	token, err := r.store.GetShareToken(ctx, tokenValue)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, fmt.Errorf("%w: share token", ErrNotFound)
	}

	if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("%w: share token expired", ErrNotFound)
	}

	return token, nil
}
