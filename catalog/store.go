package catalog

import "context"

// Store persists the prize list and its stock counters.
type Store interface {
	LoadPrizes(ctx context.Context) ([]Prize, error)
	SavePrizes(ctx context.Context, prizes []Prize) error
	SetStock(ctx context.Context, prizeID string, stock int) error
}
