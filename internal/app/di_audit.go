package app

import (
	"context"
	"fmt"

	"github.com/sobebarali/useHely-sub006/internal/audit/archive"
	auditHTTP "github.com/sobebarali/useHely-sub006/internal/audit/http"
	auditRepository "github.com/sobebarali/useHely-sub006/internal/audit/repository"
	auditService "github.com/sobebarali/useHely-sub006/internal/audit/service"
	auditUseCase "github.com/sobebarali/useHely-sub006/internal/audit/usecase"
	"github.com/sobebarali/useHely-sub006/internal/database"
)

// AuditRepository returns the audit chain repository for the configured driver.
func (c *Container) AuditRepository() (auditUseCase.AuditRepository, error) {
	var err error
	c.auditRepoInit.Do(func() {
		c.auditRepo, err = c.initAuditRepository()
		if err != nil {
			c.initErrors["auditRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditRepo"]; exists {
		return nil, storedErr
	}
	return c.auditRepo, nil
}

// PayloadSealer returns the sealer for sensitive audit payloads.
func (c *Container) PayloadSealer() *auditService.PayloadSealer {
	c.payloadSealerInit.Do(func() {
		c.payloadSealer = auditService.NewPayloadSealer(c.Engine())
	})
	return c.payloadSealer
}

// ArchiveUploader returns the S3 uploader, or nil when no bucket is configured.
func (c *Container) ArchiveUploader() (auditUseCase.ObjectUploader, error) {
	var err error
	c.archiveUploaderInit.Do(func() {
		c.archiveUploader, err = c.initArchiveUploader()
		if err != nil {
			c.initErrors["archiveUploader"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["archiveUploader"]; exists {
		return nil, storedErr
	}
	return c.archiveUploader, nil
}

// AuditWriterUseCase returns the chain writer wrapped with metrics.
func (c *Container) AuditWriterUseCase() (auditUseCase.WriterUseCase, error) {
	var err error
	c.auditWriterInit.Do(func() {
		c.auditWriter, err = c.initAuditWriterUseCase()
		if err != nil {
			c.initErrors["auditWriter"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditWriter"]; exists {
		return nil, storedErr
	}
	return c.auditWriter, nil
}

// AuditVerifierUseCase returns the chain verifier wrapped with metrics.
func (c *Container) AuditVerifierUseCase() (auditUseCase.VerifierUseCase, error) {
	var err error
	c.auditVerifierInit.Do(func() {
		c.auditVerifier, err = c.initAuditVerifierUseCase()
		if err != nil {
			c.initErrors["auditVerifier"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditVerifier"]; exists {
		return nil, storedErr
	}
	return c.auditVerifier, nil
}

// AuditQueryUseCase returns the read-only query service.
func (c *Container) AuditQueryUseCase() (auditUseCase.QueryUseCase, error) {
	var err error
	c.auditQueryInit.Do(func() {
		c.auditQuery, err = c.initAuditQueryUseCase()
		if err != nil {
			c.initErrors["auditQuery"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditQuery"]; exists {
		return nil, storedErr
	}
	return c.auditQuery, nil
}

// AuditExportUseCase returns the archive exporter wrapped with metrics.
func (c *Container) AuditExportUseCase() (auditUseCase.ExportUseCase, error) {
	var err error
	c.auditExportInit.Do(func() {
		c.auditExport, err = c.initAuditExportUseCase()
		if err != nil {
			c.initErrors["auditExport"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditExport"]; exists {
		return nil, storedErr
	}
	return c.auditExport, nil
}

// AuditHandler returns the HTTP handler for audit chains.
func (c *Container) AuditHandler() (*auditHTTP.AuditHandler, error) {
	writer, err := c.AuditWriterUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit writer for audit handler: %w", err)
	}

	query, err := c.AuditQueryUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit query for audit handler: %w", err)
	}

	verifier, err := c.AuditVerifierUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit verifier for audit handler: %w", err)
	}

	return auditHTTP.NewAuditHandler(writer, query, verifier, c.Logger()), nil
}

func (c *Container) initAuditRepository() (auditUseCase.AuditRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return auditRepository.NewPostgreSQLAuditRepository(db), nil
	case database.DriverMySQL:
		return auditRepository.NewMySQLAuditRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initArchiveUploader returns a nil interface, not a typed nil, when export is
// disabled.
func (c *Container) initArchiveUploader() (auditUseCase.ObjectUploader, error) {
	if c.config.ArchiveS3Bucket == "" {
		return nil, nil
	}

	client, err := archive.NewS3Client(context.Background(), c.config.ArchiveS3Region, c.config.ArchiveS3Endpoint)
	if err != nil {
		return nil, err
	}
	return archive.NewS3Uploader(client, c.config.ArchiveS3Bucket, c.config.ArchiveS3Prefix), nil
}

func (c *Container) initAuditWriterUseCase() (auditUseCase.WriterUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for audit writer: %w", err)
	}

	repo, err := c.AuditRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit repository for audit writer: %w", err)
	}

	registry, err := c.KeyRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get key registry for audit writer: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for audit writer: %w", err)
	}

	useCase := auditUseCase.NewWriterUseCase(
		auditUseCase.WriterConfig{MaxAttempts: c.config.AuditAppendMaxAttempts},
		txManager,
		repo,
		registry,
		c.PayloadSealer(),
		c.Logger(),
	)
	return auditUseCase.NewWriterUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initAuditVerifierUseCase() (auditUseCase.VerifierUseCase, error) {
	repo, err := c.AuditRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit repository for audit verifier: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for audit verifier: %w", err)
	}

	useCase := auditUseCase.NewVerifierUseCase(
		auditUseCase.VerifierConfig{Concurrency: c.config.AuditVerifyConcurrency},
		repo,
		c.Logger(),
	)
	return auditUseCase.NewVerifierUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initAuditQueryUseCase() (auditUseCase.QueryUseCase, error) {
	repo, err := c.AuditRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit repository for audit query: %w", err)
	}

	registry, err := c.KeyRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get key registry for audit query: %w", err)
	}

	return auditUseCase.NewQueryUseCase(repo, registry, c.PayloadSealer()), nil
}

func (c *Container) initAuditExportUseCase() (auditUseCase.ExportUseCase, error) {
	repo, err := c.AuditRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit repository for audit export: %w", err)
	}

	verifier, err := c.AuditVerifierUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit verifier for audit export: %w", err)
	}

	uploader, err := c.ArchiveUploader()
	if err != nil {
		return nil, fmt.Errorf("failed to get archive uploader for audit export: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for audit export: %w", err)
	}

	useCase := auditUseCase.NewExportUseCase(repo, verifier, uploader, c.Logger())
	return auditUseCase.NewExportUseCaseWithMetrics(useCase, businessMetrics), nil
}
