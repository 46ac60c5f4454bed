package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	"github.com/sobebarali/useHely-sub006/internal/database"
	apperrors "github.com/sobebarali/useHely-sub006/internal/errors"
)

// PostgreSQLAuditRepository implements audit chain persistence for PostgreSQL.
type PostgreSQLAuditRepository struct {
	db *sql.DB
}

// GetTail returns the tenant's tail row, or a genesis tail if none exists.
func (p *PostgreSQLAuditRepository) GetTail(ctx context.Context, tenantID string) (*auditDomain.ChainTail, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT tenant_id, sequence_no, hash, updated_at FROM audit_chain_tails WHERE tenant_id = $1`

	var tail auditDomain.ChainTail
	err := querier.QueryRowContext(ctx, query, tenantID).Scan(
		&tail.TenantID,
		&tail.SequenceNo,
		&tail.Hash,
		&tail.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auditDomain.NewGenesisTail(tenantID), nil
		}
		return nil, apperrors.Wrap(err, "failed to get audit chain tail")
	}
	return &tail, nil
}

// AdvanceTail creates the tail row for a genesis expectation, or updates it only
// if it still holds expected's sequence number and hash.
func (p *PostgreSQLAuditRepository) AdvanceTail(ctx context.Context, expected, next *auditDomain.ChainTail) error {
	querier := database.GetTx(ctx, p.db)

	if expected.IsGenesis() {
		query := `INSERT INTO audit_chain_tails (tenant_id, sequence_no, hash, updated_at) VALUES ($1, $2, $3, $4)`
		_, err := querier.ExecContext(ctx, query, next.TenantID, next.SequenceNo, next.Hash, next.UpdatedAt)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return auditDomain.ErrTailChanged
			}
			return apperrors.Wrap(err, "failed to create audit chain tail")
		}
		return nil
	}

	query := `UPDATE audit_chain_tails SET sequence_no = $1, hash = $2, updated_at = $3
			  WHERE tenant_id = $4 AND sequence_no = $5 AND hash = $6`

	result, err := querier.ExecContext(
		ctx,
		query,
		next.SequenceNo,
		next.Hash,
		next.UpdatedAt,
		expected.TenantID,
		expected.SequenceNo,
		expected.Hash,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to advance audit chain tail")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return auditDomain.ErrTailChanged
	}
	return nil
}

// InsertEntry stores a new entry.
func (p *PostgreSQLAuditRepository) InsertEntry(ctx context.Context, entry *auditDomain.AuditEntry) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO audit_entries (` + auditEntryColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	args := append([]any{entry.ID}, entryArgs(entry)...)
	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return auditDomain.ErrTailChanged
		}
		return apperrors.Wrap(err, "failed to insert audit entry")
	}
	return nil
}

// Get returns the entry at sequenceNo.
func (p *PostgreSQLAuditRepository) Get(
	ctx context.Context,
	tenantID string,
	sequenceNo uint64,
) (*auditDomain.AuditEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + auditEntryColumns + ` FROM audit_entries WHERE tenant_id = $1 AND sequence_no = $2`

	var entry auditDomain.AuditEntry
	if err := scanEntry(querier.QueryRowContext(ctx, query, tenantID, sequenceNo), &entry.ID, &entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auditDomain.ErrEntryNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get audit entry")
	}
	return &entry, nil
}

// List returns entries matching filter, newest first.
func (p *PostgreSQLAuditRepository) List(
	ctx context.Context,
	tenantID string,
	filter auditDomain.EntryFilter,
) ([]*auditDomain.AuditEntry, error) {
	querier := database.GetTx(ctx, p.db)

	where, args := filterClause(tenantID, filter, func(n int) string { return fmt.Sprintf("$%d", n) })
	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM audit_entries WHERE %s ORDER BY sequence_no DESC LIMIT $%d OFFSET $%d`,
		auditEntryColumns, where, len(args)-1, len(args))

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit entries")
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]*auditDomain.AuditEntry, 0)
	for rows.Next() {
		var entry auditDomain.AuditEntry
		if err := scanEntry(rows, &entry.ID, &entry); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit entry")
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit entries")
	}
	return entries, nil
}

// Stream walks [fromSeq, toSeq] in sequence order, one row at a time.
func (p *PostgreSQLAuditRepository) Stream(
	ctx context.Context,
	tenantID string,
	fromSeq, toSeq uint64,
	fn func(*auditDomain.AuditEntry) error,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + auditEntryColumns + ` FROM audit_entries
			  WHERE tenant_id = $1 AND sequence_no BETWEEN $2 AND $3 ORDER BY sequence_no ASC`

	rows, err := querier.QueryContext(ctx, query, tenantID, fromSeq, toSeq)
	if err != nil {
		return apperrors.Wrap(err, "failed to stream audit entries")
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var entry auditDomain.AuditEntry
		if err := scanEntry(rows, &entry.ID, &entry); err != nil {
			return apperrors.Wrap(err, "failed to scan audit entry")
		}
		if err := fn(&entry); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return apperrors.Wrap(err, "failed to iterate audit entries")
	}
	return nil
}

// ListTenants returns every tenant with a chain tail, ordered by tenant id.
func (p *PostgreSQLAuditRepository) ListTenants(ctx context.Context) ([]string, error) {
	return listTenants(ctx, database.GetTx(ctx, p.db))
}

// CountByKey counts entries with payloads sealed under keyID.
func (p *PostgreSQLAuditRepository) CountByKey(ctx context.Context, keyID uint64) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries WHERE payload_key_id = $1`, keyID).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count sealed audit entries")
	}
	return count, nil
}

// NewPostgreSQLAuditRepository creates a new PostgreSQL audit repository.
func NewPostgreSQLAuditRepository(db *sql.DB) *PostgreSQLAuditRepository {
	return &PostgreSQLAuditRepository{db: db}
}

func listTenants(ctx context.Context, querier database.Querier) ([]string, error) {
	rows, err := querier.QueryContext(ctx, `SELECT tenant_id FROM audit_chain_tails ORDER BY tenant_id ASC`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit tenants")
	}
	defer func() {
		_ = rows.Close()
	}()

	tenants := make([]string, 0)
	for rows.Next() {
		var tenantID string
		if err := rows.Scan(&tenantID); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit tenant")
		}
		tenants = append(tenants, tenantID)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit tenants")
	}
	return tenants, nil
}
