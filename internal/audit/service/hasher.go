// Package service provides the hash and payload primitives of the audit chain.
package service

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
)

// hashDomain separates entry hashes from any other SHA-256 use of the same bytes.
const hashDomain = "audit-entry:v1"

// ComputeHash returns the lowercase hex SHA-256 of the entry's canonical bytes.
// The stored Hash field is excluded; PreviousHash is included.
func ComputeHash(entry *auditDomain.AuditEntry) string {
	sum := sha256.Sum256(Canonicalize(entry))
	return hex.EncodeToString(sum[:])
}

// Canonicalize encodes every hashed field of entry in a fixed order. Variable
// length fields carry a 4-byte big-endian length prefix so no two distinct entries
// share an encoding.
//
// Format: domain || id || tenant || seq || event_type || category || severity ||
// actor_id || actor_name || resource_type || resource_id || action || ip ||
// user_agent || session_id || details || before || after || payload_key ||
// timestamp_micros || previous_hash
func Canonicalize(entry *auditDomain.AuditEntry) []byte {
	buf := make([]byte, 0, 512+len(entry.Details)+len(entry.Before)+len(entry.After))

	buf = appendLengthPrefixed(buf, []byte(hashDomain))
	buf = append(buf, entry.ID[:]...)
	buf = appendLengthPrefixed(buf, []byte(entry.TenantID))
	buf = binary.BigEndian.AppendUint64(buf, entry.SequenceNo)

	for _, s := range []string{
		entry.EventType,
		string(entry.Category),
		string(entry.Severity),
		entry.ActorID,
		entry.ActorName,
		entry.ResourceType,
		entry.ResourceID,
		string(entry.Action),
		entry.IP,
		entry.UserAgent,
		entry.SessionID,
	} {
		buf = appendLengthPrefixed(buf, []byte(s))
	}

	buf = appendLengthPrefixed(buf, entry.Details)
	buf = appendLengthPrefixed(buf, entry.Before)
	buf = appendLengthPrefixed(buf, entry.After)

	if entry.PayloadKeyID != nil {
		buf = append(buf, 1)
		buf = binary.BigEndian.AppendUint64(buf, *entry.PayloadKeyID)
	} else {
		buf = append(buf, 0)
	}

	// Microseconds: the precision both SQL stores keep.
	buf = binary.BigEndian.AppendUint64(buf, uint64(entry.Timestamp.UTC().UnixMicro()))
	buf = appendLengthPrefixed(buf, []byte(entry.PreviousHash))

	return buf
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
// Panics if data length exceeds uint32 max (4GB).
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	if uint64(len(data)) > 0xFFFFFFFF {
		panic("data length exceeds uint32 max (4GB)")
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}
