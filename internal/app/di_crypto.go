package app

import (
	"context"
	"fmt"

	cryptoHTTP "github.com/sobebarali/useHely-sub006/internal/crypto/http"
	cryptoRepository "github.com/sobebarali/useHely-sub006/internal/crypto/repository"
	cryptoService "github.com/sobebarali/useHely-sub006/internal/crypto/service"
	cryptoUseCase "github.com/sobebarali/useHely-sub006/internal/crypto/usecase"
	"github.com/sobebarali/useHely-sub006/internal/database"
)

// KMSService returns the KMS service.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// KeyWrapper returns the wrapper that seals master key material with the
// keeper named by KMS_KEY_URI.
func (c *Container) KeyWrapper() (cryptoService.KeyWrapper, error) {
	var err error
	c.keyWrapperInit.Do(func() {
		c.keyWrapper, err = c.initKeyWrapper()
		if err != nil {
			c.initErrors["keyWrapper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyWrapper"]; exists {
		return nil, storedErr
	}
	return c.keyWrapper, nil
}

// AEADManager returns the AEAD manager service.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// Engine returns the encryption engine.
func (c *Container) Engine() *cryptoService.Engine {
	c.engineInit.Do(func() {
		c.engine = cryptoService.NewEngine(c.AEADManager())
	})
	return c.engine
}

// MasterKeyRepository returns the master key repository for the configured driver.
func (c *Container) MasterKeyRepository() (cryptoUseCase.MasterKeyRepository, error) {
	var err error
	c.masterKeyRepoInit.Do(func() {
		c.masterKeyRepo, err = c.initMasterKeyRepository()
		if err != nil {
			c.initErrors["masterKeyRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["masterKeyRepo"]; exists {
		return nil, storedErr
	}
	return c.masterKeyRepo, nil
}

// EncryptedFieldRepository returns the encrypted field repository for the configured driver.
func (c *Container) EncryptedFieldRepository() (cryptoUseCase.EncryptedFieldRepository, error) {
	var err error
	c.fieldRepoInit.Do(func() {
		c.fieldRepo, err = c.initEncryptedFieldRepository()
		if err != nil {
			c.initErrors["fieldRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fieldRepo"]; exists {
		return nil, storedErr
	}
	return c.fieldRepo, nil
}

// RotationJobRepository returns the rotation job repository for the configured driver.
func (c *Container) RotationJobRepository() (cryptoUseCase.RotationJobRepository, error) {
	var err error
	c.rotationJobRepoInit.Do(func() {
		c.rotationJobRepo, err = c.initRotationJobRepository()
		if err != nil {
			c.initErrors["rotationJobRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rotationJobRepo"]; exists {
		return nil, storedErr
	}
	return c.rotationJobRepo, nil
}

// KeyRegistry returns the master key registry.
func (c *Container) KeyRegistry() (cryptoUseCase.KeyRegistry, error) {
	var err error
	c.keyRegistryInit.Do(func() {
		c.keyRegistry, err = c.initKeyRegistry()
		if err != nil {
			c.initErrors["keyRegistry"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyRegistry"]; exists {
		return nil, storedErr
	}
	return c.keyRegistry, nil
}

// FieldUseCase returns the encrypted field use case wrapped with metrics.
func (c *Container) FieldUseCase() (cryptoUseCase.FieldUseCase, error) {
	var err error
	c.fieldUseCaseInit.Do(func() {
		c.fieldUseCase, err = c.initFieldUseCase()
		if err != nil {
			c.initErrors["fieldUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["fieldUseCase"]; exists {
		return nil, storedErr
	}
	return c.fieldUseCase, nil
}

// RotationUseCase returns the key rotation use case wrapped with metrics.
func (c *Container) RotationUseCase() (cryptoUseCase.RotationUseCase, error) {
	var err error
	c.rotationUseCaseInit.Do(func() {
		c.rotationUseCase, err = c.initRotationUseCase()
		if err != nil {
			c.initErrors["rotationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rotationUseCase"]; exists {
		return nil, storedErr
	}
	return c.rotationUseCase, nil
}

// FieldHandler returns the HTTP handler for encrypted fields.
func (c *Container) FieldHandler() (*cryptoHTTP.FieldHandler, error) {
	fieldUseCase, err := c.FieldUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get field use case for field handler: %w", err)
	}

	writer, err := c.AuditWriterUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit writer for field handler: %w", err)
	}

	return cryptoHTTP.NewFieldHandler(fieldUseCase, writer, c.Logger()), nil
}

// initKeyWrapper opens the KMS keeper. The keeper is closed by Shutdown.
func (c *Container) initKeyWrapper() (cryptoService.KeyWrapper, error) {
	if c.config.KMSKeyURI == "" {
		return nil, fmt.Errorf("KMS_KEY_URI is required to load master keys")
	}

	keeper, err := c.KMSService().OpenKeeper(context.Background(), c.config.KMSKeyURI)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.kmsKeeper = keeper
	c.mu.Unlock()

	return cryptoService.NewKeyWrapper(keeper), nil
}

func (c *Container) initMasterKeyRepository() (cryptoUseCase.MasterKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for master key repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return cryptoRepository.NewPostgreSQLMasterKeyRepository(db), nil
	case database.DriverMySQL:
		return cryptoRepository.NewMySQLMasterKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initEncryptedFieldRepository() (cryptoUseCase.EncryptedFieldRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for encrypted field repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return cryptoRepository.NewPostgreSQLEncryptedFieldRepository(db), nil
	case database.DriverMySQL:
		return cryptoRepository.NewMySQLEncryptedFieldRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initRotationJobRepository() (cryptoUseCase.RotationJobRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for rotation job repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return cryptoRepository.NewPostgreSQLRotationJobRepository(db), nil
	case database.DriverMySQL:
		return cryptoRepository.NewMySQLRotationJobRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initKeyRegistry creates the registry. Encrypted fields and sealed audit
// payloads both count as key references for decommissioning.
func (c *Container) initKeyRegistry() (cryptoUseCase.KeyRegistry, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key registry: %w", err)
	}

	keyRepo, err := c.MasterKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key repository for key registry: %w", err)
	}

	jobRepo, err := c.RotationJobRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation job repository for key registry: %w", err)
	}

	fieldRepo, err := c.EncryptedFieldRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get encrypted field repository for key registry: %w", err)
	}

	auditRepo, err := c.AuditRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit repository for key registry: %w", err)
	}

	wrapper, err := c.KeyWrapper()
	if err != nil {
		return nil, fmt.Errorf("failed to get key wrapper for key registry: %w", err)
	}

	return cryptoUseCase.NewKeyRegistryUseCase(
		txManager,
		keyRepo,
		jobRepo,
		wrapper,
		c.Logger(),
		fieldRepo,
		auditRepo,
	), nil
}

func (c *Container) initFieldUseCase() (cryptoUseCase.FieldUseCase, error) {
	registry, err := c.KeyRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get key registry for field use case: %w", err)
	}

	fieldRepo, err := c.EncryptedFieldRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get encrypted field repository for field use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for field use case: %w", err)
	}

	useCase := cryptoUseCase.NewFieldUseCase(registry, fieldRepo, c.Engine())
	return cryptoUseCase.NewFieldUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initRotationUseCase() (cryptoUseCase.RotationUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for rotation use case: %w", err)
	}

	registry, err := c.KeyRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get key registry for rotation use case: %w", err)
	}

	fieldRepo, err := c.EncryptedFieldRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get encrypted field repository for rotation use case: %w", err)
	}

	jobRepo, err := c.RotationJobRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation job repository for rotation use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for rotation use case: %w", err)
	}

	useCase := cryptoUseCase.NewRotationUseCase(
		cryptoUseCase.RotationConfig{
			PageSize:       c.config.RotationPageSize,
			PagesPerSecond: c.config.RotationPagesPerSec,
			MaxPageRetries: c.config.RotationMaxPageRetries,
			LeaseDuration:  c.config.RotationLeaseDuration,
		},
		txManager,
		registry,
		fieldRepo,
		jobRepo,
		c.Engine(),
		c.Logger(),
	)
	return cryptoUseCase.NewRotationUseCaseWithMetrics(useCase, businessMetrics), nil
}
