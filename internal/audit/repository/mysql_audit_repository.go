package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	"github.com/sobebarali/useHely-sub006/internal/database"
	apperrors "github.com/sobebarali/useHely-sub006/internal/errors"
)

// MySQLAuditRepository implements audit chain persistence for MySQL. Entry ids are
// stored as BINARY(16).
type MySQLAuditRepository struct {
	db *sql.DB
}

// GetTail returns the tenant's tail row, or a genesis tail if none exists.
func (m *MySQLAuditRepository) GetTail(ctx context.Context, tenantID string) (*auditDomain.ChainTail, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT tenant_id, sequence_no, hash, updated_at FROM audit_chain_tails WHERE tenant_id = ?`

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
// if it still holds expected's sequence number and hash. The sequence number always
// changes, so a matched row is always reported as affected.
func (m *MySQLAuditRepository) AdvanceTail(ctx context.Context, expected, next *auditDomain.ChainTail) error {
	querier := database.GetTx(ctx, m.db)

	if expected.IsGenesis() {
		query := `INSERT INTO audit_chain_tails (tenant_id, sequence_no, hash, updated_at) VALUES (?, ?, ?, ?)`
		_, err := querier.ExecContext(ctx, query, next.TenantID, next.SequenceNo, next.Hash, next.UpdatedAt)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return auditDomain.ErrTailChanged
			}
			return apperrors.Wrap(err, "failed to create audit chain tail")
		}
		return nil
	}

	query := `UPDATE audit_chain_tails SET sequence_no = ?, hash = ?, updated_at = ?
			  WHERE tenant_id = ? AND sequence_no = ? AND hash = ?`

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
func (m *MySQLAuditRepository) InsertEntry(ctx context.Context, entry *auditDomain.AuditEntry) error {
	querier := database.GetTx(ctx, m.db)

	id, err := entry.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit entry id")
	}

	query := `INSERT INTO audit_entries (` + auditEntryColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	args := append([]any{id}, entryArgs(entry)...)
	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return auditDomain.ErrTailChanged
		}
		return apperrors.Wrap(err, "failed to insert audit entry")
	}
	return nil
}

// Get returns the entry at sequenceNo.
func (m *MySQLAuditRepository) Get(
	ctx context.Context,
	tenantID string,
	sequenceNo uint64,
) (*auditDomain.AuditEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + auditEntryColumns + ` FROM audit_entries WHERE tenant_id = ? AND sequence_no = ?`

	entry, err := scanMySQLEntry(querier.QueryRowContext(ctx, query, tenantID, sequenceNo))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auditDomain.ErrEntryNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get audit entry")
	}
	return entry, nil
}

// List returns entries matching filter, newest first.
func (m *MySQLAuditRepository) List(
	ctx context.Context,
	tenantID string,
	filter auditDomain.EntryFilter,
) ([]*auditDomain.AuditEntry, error) {
	querier := database.GetTx(ctx, m.db)

	where, args := filterClause(tenantID, filter, func(int) string { return "?" })
	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM audit_entries WHERE %s ORDER BY sequence_no DESC LIMIT ? OFFSET ?`,
		auditEntryColumns, where)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit entries")
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]*auditDomain.AuditEntry, 0)
	for rows.Next() {
		entry, err := scanMySQLEntry(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit entry")
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit entries")
	}
	return entries, nil
}

// Stream walks [fromSeq, toSeq] in sequence order, one row at a time.
func (m *MySQLAuditRepository) Stream(
	ctx context.Context,
	tenantID string,
	fromSeq, toSeq uint64,
	fn func(*auditDomain.AuditEntry) error,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + auditEntryColumns + ` FROM audit_entries
			  WHERE tenant_id = ? AND sequence_no BETWEEN ? AND ? ORDER BY sequence_no ASC`

	rows, err := querier.QueryContext(ctx, query, tenantID, fromSeq, toSeq)
	if err != nil {
		return apperrors.Wrap(err, "failed to stream audit entries")
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		entry, err := scanMySQLEntry(rows)
		if err != nil {
			return apperrors.Wrap(err, "failed to scan audit entry")
		}
		if err := fn(entry); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return apperrors.Wrap(err, "failed to iterate audit entries")
	}
	return nil
}

// ListTenants returns every tenant with a chain tail, ordered by tenant id.
func (m *MySQLAuditRepository) ListTenants(ctx context.Context) ([]string, error) {
	return listTenants(ctx, database.GetTx(ctx, m.db))
}

// CountByKey counts entries with payloads sealed under keyID.
func (m *MySQLAuditRepository) CountByKey(ctx context.Context, keyID uint64) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	var count int64
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries WHERE payload_key_id = ?`, keyID).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count sealed audit entries")
	}
	return count, nil
}

func scanMySQLEntry(scanner rowScanner) (*auditDomain.AuditEntry, error) {
	var entry auditDomain.AuditEntry
	var id []byte
	if err := scanEntry(scanner, &id, &entry); err != nil {
		return nil, err
	}
	parsed, err := uuid.FromBytes(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal audit entry id")
	}
	entry.ID = parsed
	return &entry, nil
}

// NewMySQLAuditRepository creates a new MySQL audit repository.
func NewMySQLAuditRepository(db *sql.DB) *MySQLAuditRepository {
	return &MySQLAuditRepository{db: db}
}
