package participant

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_InMemory(t *testing.T) {
	ctx := context.Background()
	r, err := NewRegistry(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, Anonymous, r.Lookup("p1").DisplayName)
	assert.Equal(t, "A", r.Lookup("p1").Initial())

	p, err := r.Register(ctx, " p1 ", " zoë ")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "zoë", r.Lookup("p1").DisplayName)
	assert.Equal(t, "Z", r.Lookup("p1").Initial())

	p, err = r.Register(ctx, "p2", "   ")
	require.NoError(t, err)
	assert.Equal(t, Anonymous, p.DisplayName)
}

func TestRegistry_Database(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name"}).AddRow("p1", "Grace"))
	mock.ExpectExec("INSERT INTO participants").
		WithArgs("p2", "Linus").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r, err := NewRegistry(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "Grace", r.Lookup("p1").DisplayName)

	_, err = r.Register(ctx, "p2", "Linus")
	require.NoError(t, err)
	assert.Equal(t, "Linus", r.Lookup("p2").DisplayName)

	require.NoError(t, mock.ExpectationsWereMet())
}
