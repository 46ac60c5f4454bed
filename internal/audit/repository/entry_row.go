// Package repository implements audit chain persistence for PostgreSQL and MySQL.
package repository

import (
	"database/sql"
	"encoding/json"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
)

const auditEntryColumns = `id, tenant_id, sequence_no, event_type, category, severity, actor_id, actor_name,
	resource_type, resource_id, action, ip, user_agent, session_id, details, before_state, after_state,
	payload_key_id, occurred_at, hash, previous_hash`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// entryRow holds the nullable columns of an audit entry. Absent optional values
// are stored as NULL and read back as empty, which hashes identically.
type entryRow struct {
	category     string
	severity     string
	resourceType sql.NullString
	resourceID   sql.NullString
	action       sql.NullString
	ip           sql.NullString
	userAgent    sql.NullString
	sessionID    sql.NullString
	details      sql.NullString
	before       sql.NullString
	after        sql.NullString
	payloadKeyID sql.NullInt64
}

// scanEntry scans one row into entry. id receives the driver's id representation.
func scanEntry(scanner rowScanner, id any, entry *auditDomain.AuditEntry) error {
	var row entryRow
	if err := scanner.Scan(
		id,
		&entry.TenantID,
		&entry.SequenceNo,
		&entry.EventType,
		&row.category,
		&row.severity,
		&entry.ActorID,
		&entry.ActorName,
		&row.resourceType,
		&row.resourceID,
		&row.action,
		&row.ip,
		&row.userAgent,
		&row.sessionID,
		&row.details,
		&row.before,
		&row.after,
		&row.payloadKeyID,
		&entry.Timestamp,
		&entry.Hash,
		&entry.PreviousHash,
	); err != nil {
		return err
	}

	entry.Category = auditDomain.Category(row.category)
	entry.Severity = auditDomain.Severity(row.severity)
	entry.ResourceType = row.resourceType.String
	entry.ResourceID = row.resourceID.String
	entry.Action = auditDomain.Action(row.action.String)
	entry.IP = row.ip.String
	entry.UserAgent = row.userAgent.String
	entry.SessionID = row.sessionID.String
	entry.Details = rawFromNull(row.details)
	entry.Before = rawFromNull(row.before)
	entry.After = rawFromNull(row.after)
	if row.payloadKeyID.Valid {
		keyID := uint64(row.payloadKeyID.Int64)
		entry.PayloadKeyID = &keyID
	}
	entry.Timestamp = entry.Timestamp.UTC()
	return nil
}

// entryArgs returns insert arguments after id, in auditEntryColumns order.
func entryArgs(entry *auditDomain.AuditEntry) []any {
	var payloadKeyID any
	if entry.PayloadKeyID != nil {
		payloadKeyID = int64(*entry.PayloadKeyID)
	}
	return []any{
		entry.TenantID,
		entry.SequenceNo,
		entry.EventType,
		string(entry.Category),
		string(entry.Severity),
		entry.ActorID,
		entry.ActorName,
		nullString(entry.ResourceType),
		nullString(entry.ResourceID),
		nullString(string(entry.Action)),
		nullString(entry.IP),
		nullString(entry.UserAgent),
		nullString(entry.SessionID),
		nullRaw(entry.Details),
		nullRaw(entry.Before),
		nullRaw(entry.After),
		payloadKeyID,
		entry.Timestamp,
		entry.Hash,
		entry.PreviousHash,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullRaw(raw json.RawMessage) sql.NullString {
	return sql.NullString{String: string(raw), Valid: len(raw) > 0}
}

func rawFromNull(s sql.NullString) json.RawMessage {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.RawMessage(s.String)
}

// filterClause builds the WHERE conditions for List. placeholder renders the
// n-th bind parameter for the target driver.
func filterClause(
	tenantID string,
	filter auditDomain.EntryFilter,
	placeholder func(n int) string,
) (string, []any) {
	args := []any{tenantID}
	where := "tenant_id = " + placeholder(1)

	add := func(cond string, arg any) {
		args = append(args, arg)
		where += " AND " + cond + " " + placeholder(len(args))
	}

	if filter.Category != "" {
		add("category =", string(filter.Category))
	}
	if filter.EventType != "" {
		add("event_type =", filter.EventType)
	}
	if filter.Severity != "" {
		add("severity =", string(filter.Severity))
	}
	if filter.From != nil {
		add("occurred_at >=", filter.From.UTC())
	}
	if filter.To != nil {
		add("occurred_at <=", filter.To.UTC())
	}
	return where, args
}
