package ledger

import "context"

// StockChange is a prize stock level written in the same commit as the spin
// that consumed the unit.
type StockChange struct {
	PrizeID   string
	Remaining int
}

// Store is the durable side of the ledger. AppendSpin must write the spin, its
// win and the stock change (each optional but the spin) together or not at all.
type Store interface {
	Load(ctx context.Context) ([]SpinRecord, []WinRecord, error)
	AppendSpin(ctx context.Context, spin SpinRecord, win *WinRecord, stock *StockChange) error
	SaveWin(ctx context.Context, win WinRecord) error
}
