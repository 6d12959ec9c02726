package accounts

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payschool/platform/pkg/storage"
)

func newTestStore(t *testing.T) (*SQLStore, *sql.DB) {
	t.Helper()
	cfg := storage.DefaultConfig()
	cfg.DSN = ":memory:"
	// an in-memory SQLite database exists per connection
	cfg.MaxConns = 1
	cfg.MaxIdle = 1

	db, err := storage.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(db))

	return NewSQLStore(db), db
}

func TestCreateAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	account := &Account{
		SubjectID:   "google-oauth2|1001",
		DisplayName: "Ada Lovelace",
		Email:       "ada@example.com",
	}
	require.NoError(t, store.Create(ctx, account))
	assert.NotEmpty(t, account.ID)
	assert.False(t, account.CreatedAt.IsZero())

	got, err := store.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Empty(t, got.BillingCustomerID)

	bySubject, err := store.GetBySubject(ctx, "google-oauth2|1001")
	require.NoError(t, err)
	assert.Equal(t, account.ID, bySubject.ID)

	byEmail, err := store.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, byEmail.ID)
}

func TestGetByIDNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateDuplicateEmailRejected(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first := &Account{SubjectID: "sub-1", DisplayName: "Ada", Email: "ada@example.com"}
	require.NoError(t, store.Create(ctx, first))

	second := &Account{SubjectID: "sub-2", DisplayName: "Imposter", Email: "ada@example.com"}
	err := store.Create(ctx, second)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestCreateDuplicateSubjectRejected(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Account{SubjectID: "sub-1", DisplayName: "Ada", Email: "ada@example.com"}))

	err := store.Create(ctx, &Account{SubjectID: "sub-1", DisplayName: "Ada", Email: "other@example.com"})
	assert.ErrorIs(t, err, ErrSubjectExists)
}

func TestLookupOrCreate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.LookupOrCreate(ctx, "sub-1", "Ada Lovelace", "ada@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	// Second login resolves to the same account
	again, err := store.LookupOrCreate(ctx, "sub-1", "Ada Lovelace", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestLookupOrCreateByEmailFallback(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	seeded := &Account{SubjectID: "legacy-sub", DisplayName: "Ada", Email: "ada@example.com"}
	require.NoError(t, store.Create(ctx, seeded))

	// A changed subject for an existing email still resolves to the account
	got, err := store.LookupOrCreate(ctx, "new-sub", "Ada", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, got.ID)
}

func TestUpdateBillingCustomerID(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	account := &Account{SubjectID: "sub-1", DisplayName: "Ada", Email: "ada@example.com"}
	require.NoError(t, store.Create(ctx, account))

	require.NoError(t, store.UpdateBillingCustomerID(ctx, account.ID, "", "cus_100"))

	got, err := store.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "cus_100", got.BillingCustomerID)

	// Replacing with the observed previous value succeeds
	require.NoError(t, store.UpdateBillingCustomerID(ctx, account.ID, "cus_100", "cus_200"))
}

func TestUpdateBillingCustomerIDStaleRef(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	account := &Account{SubjectID: "sub-1", DisplayName: "Ada", Email: "ada@example.com"}
	require.NoError(t, store.Create(ctx, account))
	require.NoError(t, store.UpdateBillingCustomerID(ctx, account.ID, "", "cus_winner"))

	// A writer still holding the old observed value loses
	err := store.UpdateBillingCustomerID(ctx, account.ID, "", "cus_loser")
	assert.ErrorIs(t, err, ErrStaleBillingRef)

	got, err := store.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "cus_winner", got.BillingCustomerID)
}

func TestUpdateBillingCustomerIDMissingAccount(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.UpdateBillingCustomerID(context.Background(), "missing", "", "cus_1")
	assert.ErrorIs(t, err, ErrNotFound)
}

// The sqlmock tests below pin the exact SQL shape of the conditional write,
// independent of driver behavior.

func TestUpdateBillingCustomerIDQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db)

	mock.ExpectExec("UPDATE accounts").
		WithArgs("cus_new", "acc-1", "cus_old").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdateBillingCustomerID(context.Background(), "acc-1", "cus_old", "cus_new"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db)

	mock.ExpectQuery("SELECT COUNT").WillReturnError(assert.AnError)

	_, err = store.Count(context.Background())
	assert.Error(t, err)
}
