package usecase

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	auditService "github.com/sobebarali/useHely-sub006/internal/audit/service"
	apperrors "github.com/sobebarali/useHely-sub006/internal/errors"
	"github.com/sobebarali/useHely-sub006/internal/testutil"
)

// recordingUploader keeps the last uploaded object.
type recordingUploader struct {
	key      string
	body     []byte
	metadata map[string]string
	calls    int
	err      error
}

func (u *recordingUploader) PutObject(ctx context.Context, key string, body io.ReadSeeker, metadata map[string]string) error {
	u.calls++
	if u.err != nil {
		return u.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	u.key, u.body, u.metadata = key, data, metadata
	return nil
}

func (u *recordingUploader) lines(t *testing.T) []archiveLine {
	t.Helper()
	var lines []archiveLine
	scanner := bufio.NewScanner(bytes.NewReader(u.body))
	for scanner.Scan() {
		var line archiveLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	return lines
}

// entry rebuilds the hashed fields of an archived line.
func (l archiveLine) entry(t *testing.T) *auditDomain.AuditEntry {
	t.Helper()
	return &auditDomain.AuditEntry{
		ID:           uuid.MustParse(l.ID),
		TenantID:     l.TenantID,
		SequenceNo:   l.SequenceNo,
		EventType:    l.EventType,
		Category:     auditDomain.Category(l.Category),
		Severity:     auditDomain.Severity(l.Severity),
		ActorID:      l.ActorID,
		ActorName:    l.ActorName,
		ResourceType: l.ResourceType,
		ResourceID:   l.ResourceID,
		Action:       auditDomain.Action(l.Action),
		IP:           l.IP,
		UserAgent:    l.UserAgent,
		SessionID:    l.SessionID,
		Details:      json.RawMessage(l.Details),
		Before:       json.RawMessage(l.Before),
		After:        json.RawMessage(l.After),
		PayloadKeyID: l.PayloadKeyID,
		Timestamp:    l.Timestamp,
		PreviousHash: l.PreviousHash,
	}
}

func (e *testEnv) newExport(uploader ObjectUploader) ExportUseCase {
	return NewExportUseCase(e.store.Audit(), e.verifier, uploader, testutil.NewTestLogger())
}

func TestExportUseCase_Export(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_FullChain", func(t *testing.T) {
		env := newTestEnv(t)
		entries := env.appendN(t, "tenant-a", 4)
		uploader := &recordingUploader{}

		result, err := env.newExport(uploader).Export(ctx, "tenant-a", 0, 0)
		require.NoError(t, err)

		assert.Equal(t, "tenant-a/00000000000000000001-00000000000000000004.jsonl", result.ObjectKey)
		assert.Equal(t, uint64(1), result.FromSeq)
		assert.Equal(t, uint64(4), result.ToSeq)
		assert.Equal(t, uint64(4), result.EntryCount)
		assert.Equal(t, entries[3].Hash, result.HeadHash)

		assert.Equal(t, result.ObjectKey, uploader.key)
		assert.Equal(t, map[string]string{
			MetadataHeadHash:   entries[3].Hash,
			MetadataEntryCount: "4",
			MetadataTenantID:   "tenant-a",
		}, uploader.metadata)

		lines := uploader.lines(t)
		require.Len(t, lines, 4)
		for i, line := range lines {
			assert.Equal(t, entries[i].SequenceNo, line.SequenceNo)
			assert.Equal(t, entries[i].Hash, line.Hash)
			assert.Equal(t, entries[i].PreviousHash, line.PreviousHash)
			assert.Equal(t, entries[i].ID.String(), line.ID)
		}
	})

	t.Run("Success_SubRange", func(t *testing.T) {
		env := newTestEnv(t)
		entries := env.appendN(t, "tenant-a", 6)
		uploader := &recordingUploader{}

		result, err := env.newExport(uploader).Export(ctx, "tenant-a", 2, 4)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), result.EntryCount)
		assert.Equal(t, entries[3].Hash, result.HeadHash)
		assert.Len(t, uploader.lines(t), 3)
	})

	t.Run("Success_SealedPayloadsStaySealed", func(t *testing.T) {
		env := newTestEnv(t)
		env.bootstrap(t)
		input := newInput("patient.record_viewed")
		input.Details = json.RawMessage(`{"diagnosis":"hypertension"}`)
		input.Sensitive = true
		_, err := env.writer.Append(ctx, "tenant-a", input)
		require.NoError(t, err)
		uploader := &recordingUploader{}

		_, err = env.newExport(uploader).Export(ctx, "tenant-a", 0, 0)
		require.NoError(t, err)
		assert.NotContains(t, string(uploader.body), "hypertension")
		require.NotNil(t, uploader.lines(t)[0].PayloadKeyID)
	})

	t.Run("Success_ArchivedLinesRehashToStoredHash", func(t *testing.T) {
		env := newTestEnv(t)
		env.bootstrap(t)

		plain := newInput("patient.note_added")
		plain.Details = json.RawMessage(`{"note":  "<b>bold</b> & more",` + "\n" + `  "n": 1}`)
		_, err := env.writer.Append(ctx, "tenant-a", plain)
		require.NoError(t, err)

		sealed := newInput("patient.record_viewed")
		sealed.Sensitive = true
		_, err = env.writer.Append(ctx, "tenant-a", sealed)
		require.NoError(t, err)

		uploader := &recordingUploader{}
		_, err = env.newExport(uploader).Export(ctx, "tenant-a", 0, 0)
		require.NoError(t, err)
		assert.Contains(t, string(uploader.body), "<b>bold</b>")

		lines := uploader.lines(t)
		require.Len(t, lines, 2)
		assert.Equal(t, string(plain.Details), lines[0].Details)

		previous := ""
		for _, line := range lines {
			entry := line.entry(t)
			assert.Equal(t, line.Hash, auditService.ComputeHash(entry), "sequence %d", line.SequenceNo)
			if previous != "" {
				assert.Equal(t, previous, line.PreviousHash)
			}
			previous = line.Hash
		}
	})

	t.Run("Error_NotConfigured", func(t *testing.T) {
		env := newTestEnv(t)
		env.appendN(t, "tenant-a", 1)

		_, err := env.newExport(nil).Export(ctx, "tenant-a", 0, 0)
		assert.ErrorIs(t, err, auditDomain.ErrArchiveNotConfigured)
	})

	t.Run("Error_BrokenChainIsNotArchived", func(t *testing.T) {
		env := newTestEnv(t)
		env.appendN(t, "tenant-a", 3)
		env.store.DeleteAuditEntry("tenant-a", 2)
		uploader := &recordingUploader{}

		_, err := env.newExport(uploader).Export(ctx, "tenant-a", 0, 0)
		assert.ErrorIs(t, err, auditDomain.ErrChainBroken)
		assert.ErrorIs(t, err, apperrors.ErrIntegrity)
		assert.Contains(t, err.Error(), "MISSING_SEQUENCE")
		assert.Zero(t, uploader.calls)
	})

	t.Run("Error_EmptyRange", func(t *testing.T) {
		env := newTestEnv(t)
		uploader := &recordingUploader{}

		_, err := env.newExport(uploader).Export(ctx, "tenant-a", 0, 0)
		assert.ErrorIs(t, err, auditDomain.ErrInvalidRange)
		assert.Zero(t, uploader.calls)
	})

	t.Run("Error_InvalidRange", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.newExport(&recordingUploader{}).Export(ctx, "tenant-a", 4, 2)
		assert.ErrorIs(t, err, auditDomain.ErrInvalidRange)
	})

	t.Run("Error_UploadFailure", func(t *testing.T) {
		env := newTestEnv(t)
		env.appendN(t, "tenant-a", 2)
		uploader := &recordingUploader{err: errors.New("bucket unreachable")}

		result, err := env.newExport(uploader).Export(ctx, "tenant-a", 0, 0)
		assert.Nil(t, result)
		assert.EqualError(t, err, "bucket unreachable")
		assert.Equal(t, 1, uploader.calls)
	})
}

func TestArchiveObjectKey(t *testing.T) {
	assert.Equal(t, "t1/00000000000000000010-00000000000000000200.jsonl", archiveObjectKey("t1", 10, 200))
	assert.Less(t, archiveObjectKey("t1", 9, 9), archiveObjectKey("t1", 10, 10))
}
