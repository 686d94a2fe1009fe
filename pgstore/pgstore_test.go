package pgstore

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashenafi-pixel/trustcade-rewards/catalog"
	"github.com/Ashenafi-pixel/trustcade-rewards/ledger"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCatalogStore_LoadPrizes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, name, category, value, weight, stock FROM prizes").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "value", "weight", "stock"}).
			AddRow("A", "Try Again", "", "0", 900.0, nil).
			AddRow("B", "Gift Card", "voucher", "500", 100.0, int64(3)))

	prizes, err := NewCatalogStore(db).LoadPrizes(context.Background())
	require.NoError(t, err)
	require.Len(t, prizes, 2)
	assert.Nil(t, prizes[0].Stock)
	assert.True(t, prizes[1].Value.Equal(decimal.NewFromInt(500)))
	require.NotNil(t, prizes[1].Stock)
	assert.Equal(t, 3, *prizes[1].Stock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogStore_SavePrizes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM prizes").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO prizes").
		WithArgs("A", 0, "Try Again", "", sqlmock.AnyArg(), 900.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO prizes").
		WithArgs("B", 1, "Gift Card", "", sqlmock.AnyArg(), 100.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = NewCatalogStore(db).SavePrizes(context.Background(), []catalog.Prize{
		{ID: "A", Name: "Try Again", Weight: 900},
		{ID: "B", Name: "Gift Card", Value: decimal.NewFromInt(500), Weight: 100, Stock: catalog.Stock(1)},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogStore_SetStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE prizes SET stock").WithArgs(4, "B").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE prizes SET stock").WithArgs(4, "ghost").WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewCatalogStore(db)
	require.NoError(t, s.SetStock(context.Background(), "B", 4))
	assert.Error(t, s.SetStock(context.Background(), "ghost", 4))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStore_AppendSpinWithWin(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	spin := ledger.SpinRecord{ID: "s1", ParticipantID: "p1", PrizeID: "B", PrizeName: "Gift Card",
		PrizeValue: decimal.NewFromInt(500), WinID: "w1", Timestamp: t0}
	win := &ledger.WinRecord{ID: "w1", ParticipantID: "p1", SpinID: "s1", PrizeID: "B", PrizeName: "Gift Card",
		PrizeValue: decimal.NewFromInt(500), ClaimCode: "TC-ABCDEFGH", Status: ledger.StatusPending,
		RequiresVerification: true, CreatedAt: t0}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE prizes SET stock").WithArgs(9, "B").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO spins").
		WithArgs("s1", "p1", "B", "Gift Card", sqlmock.AnyArg(), sqlmock.AnyArg(), t0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO wins").
		WithArgs("w1", "p1", "s1", "B", "Gift Card", sqlmock.AnyArg(), "TC-ABCDEFGH", "pending", true, t0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	stock := &ledger.StockChange{PrizeID: "B", Remaining: 9}
	require.NoError(t, NewLedgerStore(db).AppendSpin(context.Background(), spin, win, stock))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStore_AppendSpinRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO spins").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO wins").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	spin := ledger.SpinRecord{ID: "s1", ParticipantID: "p1", WinID: "w1", Timestamp: t0}
	win := &ledger.WinRecord{ID: "w1", ParticipantID: "p1", SpinID: "s1", Status: ledger.StatusPending, CreatedAt: t0}
	err = NewLedgerStore(db).AppendSpin(context.Background(), spin, win, nil)
	assert.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStore_AppendSpinRollsBackStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE prizes SET stock").WithArgs(0, "B").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO spins").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO wins").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	spin := ledger.SpinRecord{ID: "s1", ParticipantID: "p1", PrizeID: "B", WinID: "w1", Timestamp: t0}
	win := &ledger.WinRecord{ID: "w1", ParticipantID: "p1", SpinID: "s1", PrizeID: "B", Status: ledger.StatusPending, CreatedAt: t0}
	err = NewLedgerStore(db).AppendSpin(context.Background(), spin, win, &ledger.StockChange{PrizeID: "B", Remaining: 0})
	assert.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStore_AppendSpinUnknownPrize(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE prizes SET stock").WithArgs(3, "ghost").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	spin := ledger.SpinRecord{ID: "s1", ParticipantID: "p1", PrizeID: "ghost", Timestamp: t0}
	err = NewLedgerStore(db).AppendSpin(context.Background(), spin, nil, &ledger.StockChange{PrizeID: "ghost", Remaining: 3})
	assert.ErrorContains(t, err, "prize ghost not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStore_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	claimed := t0.Add(time.Hour)
	mock.ExpectQuery("SELECT id, participant_id, prize_id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "participant_id", "prize_id", "prize_name", "prize_value", "win_id", "spun_at"}).
			AddRow("s1", "p1", "B", "Gift Card", "500", "w1", t0))
	mock.ExpectQuery("SELECT id, participant_id, spin_id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "participant_id", "spin_id", "prize_id", "prize_name", "prize_value",
			"claim_code", "status", "requires_verification", "created_at", "claimed_at", "shipped_at", "delivered_at",
			"tracking_number", "claim"}).
			AddRow("w1", "p1", "s1", "B", "Gift Card", "500", "TC-ABCDEFGH", "verified", true, t0, claimed, nil, nil, "",
				[]byte(`{"fullName":"Ada Lovelace","shippingAddress":"1 Analytical Way","email":"ada@example.com"}`)))

	spins, wins, err := NewLedgerStore(db).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, spins, 1)
	assert.Equal(t, "w1", spins[0].WinID)
	require.Len(t, wins, 1)
	w := wins[0]
	assert.Equal(t, ledger.StatusVerified, w.Status)
	require.NotNil(t, w.ClaimedAt)
	assert.True(t, w.ClaimedAt.Equal(claimed))
	assert.Nil(t, w.ShippedAt)
	require.NotNil(t, w.Claim)
	assert.Equal(t, "Ada Lovelace", w.Claim.FullName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStore_SaveWin(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	shipped := t0.Add(2 * time.Hour)
	mock.ExpectExec("UPDATE wins SET status").
		WithArgs("shipped", nil, shipped, nil, "1Z999", `{"fullName":"Ada","shippingAddress":""}`, "w1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE wins SET status").
		WithArgs("pending", nil, nil, nil, "", nil, "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewLedgerStore(db)
	err = s.SaveWin(context.Background(), ledger.WinRecord{ID: "w1", Status: ledger.StatusShipped,
		ShippedAt: &shipped, TrackingNumber: "1Z999", Claim: &ledger.ClaimDetails{FullName: "Ada"}})
	require.NoError(t, err)
	assert.Error(t, s.SaveWin(context.Background(), ledger.WinRecord{ID: "ghost", Status: ledger.StatusPending}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS prizes").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}
