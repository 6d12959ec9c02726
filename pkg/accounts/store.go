package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// SQLStore implements Store on top of database/sql. It works against both
// SQLite and PostgreSQL; see pkg/storage for connection setup and schema.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a new SQLStore
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Create inserts a new account
func (s *SQLStore) Create(ctx context.Context, account *Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO accounts (id, subject_id, display_name, email, billing_customer_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		account.ID, account.SubjectID, account.DisplayName, account.Email,
		account.BillingCustomerID, account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "email") {
			return ErrEmailExists
		}
		if isUniqueViolation(err, "subject_id") {
			return ErrSubjectExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by id
func (s *SQLStore) GetByID(ctx context.Context, id string) (*Account, error) {
	return s.getBy(ctx, "id", id)
}

// GetBySubject retrieves an account by identity-provider subject
func (s *SQLStore) GetBySubject(ctx context.Context, subjectID string) (*Account, error) {
	return s.getBy(ctx, "subject_id", subjectID)
}

// GetByEmail retrieves an account by email
func (s *SQLStore) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return s.getBy(ctx, "email", email)
}

func (s *SQLStore) getBy(ctx context.Context, column, value string) (*Account, error) {
	query := fmt.Sprintf(`
		SELECT id, subject_id, display_name, email, billing_customer_id, created_at
		FROM accounts
		WHERE %s = $1
	`, column)

	account := &Account{}
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&account.ID, &account.SubjectID, &account.DisplayName, &account.Email,
		&account.BillingCustomerID, &account.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// LookupOrCreate resolves an identity result to an account, creating one on
// first login. Lookup order: subject, then email.
func (s *SQLStore) LookupOrCreate(ctx context.Context, subjectID, displayName, email string) (*Account, error) {
	account, err := s.GetBySubject(ctx, subjectID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	account, err = s.GetByEmail(ctx, email)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	account = &Account{
		SubjectID:   subjectID,
		DisplayName: displayName,
		Email:       email,
	}
	if err := s.Create(ctx, account); err != nil {
		// A concurrent first login may have created the account between
		// lookup and insert; resolve to the winner.
		if errors.Is(err, ErrEmailExists) || errors.Is(err, ErrSubjectExists) {
			return s.GetBySubject(ctx, subjectID)
		}
		return nil, err
	}

	return account, nil
}

// UpdateBillingCustomerID conditionally replaces the billing customer
// reference, guarding against concurrent reconciliations.
func (s *SQLStore) UpdateBillingCustomerID(ctx context.Context, id, previous, next string) error {
	query := `
		UPDATE accounts
		SET billing_customer_id = $1
		WHERE id = $2 AND billing_customer_id = $3
	`
	result, err := s.db.ExecContext(ctx, query, next, id, previous)
	if err != nil {
		return fmt.Errorf("failed to update billing customer: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := s.GetByID(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrStaleBillingRef
	}

	return nil
}

// Count returns the total number of accounts
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// isUniqueViolation reports whether err is a unique constraint violation on
// the given column, for either supported driver.
func isUniqueViolation(err error, column string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, column)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique &&
			strings.Contains(sqliteErr.Error(), column)
	}

	return false
}
