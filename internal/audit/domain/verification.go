package domain

import "time"

// BreakKind classifies the first divergence found in a chain.
type BreakKind string

const (
	// BreakHashMismatch means an entry's stored hash differs from its recomputed hash.
	BreakHashMismatch BreakKind = "HASH_MISMATCH"
	// BreakChainLinkMismatch means an entry's previous hash does not match its
	// predecessor, or the tail pointer disagrees with the last entry.
	BreakChainLinkMismatch BreakKind = "CHAIN_LINK_MISMATCH"
	// BreakMissingSequence means a sequence number inside the range is absent.
	BreakMissingSequence BreakKind = "MISSING_SEQUENCE"
)

// ChainBreak locates the first divergence. It is a result, never auto-repaired.
type ChainBreak struct {
	BrokenAtSequence uint64
	Kind             BreakKind
	Expected         string
	Actual           string
}

// VerificationResult reports the outcome of verifying [FromSeq, ToSeq] of a chain.
type VerificationResult struct {
	TenantID        string
	FromSeq         uint64
	ToSeq           uint64
	EntriesVerified uint64
	Valid           bool
	Break           *ChainBreak
	HeadHash        string
	VerifiedAt      time.Time
}
