package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fernet/fernet-go"

	"github.com/cryptofolio/backend/internal/database"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/repository"
	"github.com/cryptofolio/backend/internal/version"
)

const priceFeedAPIKeySetting = "price_feed_api_key"

// SystemService handles system-related operations: health, version
// reporting, and encrypted secrets in the system_setting table.
type SystemService struct {
	db          *sql.DB
	settingRepo *repository.SettingRepository
	fernetKey   *fernet.Key
}

// NewSystemService creates a new SystemService. fernetKey is the base64
// fernet key from configuration; an empty key disables secret storage.
func NewSystemService(db *sql.DB, settingRepo *repository.SettingRepository, fernetKey string) (*SystemService, error) {
	s := &SystemService{db: db, settingRepo: settingRepo}
	if fernetKey != "" {
		key, err := fernet.DecodeKey(fernetKey)
		if err != nil {
			return nil, fmt.Errorf("invalid fernet key: %w", err)
		}
		s.fernetKey = key
	}
	return s, nil
}

// CheckHealth checks the health of the system.
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// VersionInfo reports the application version and the database schema version.
func (s *SystemService) VersionInfo(ctx context.Context) (model.VersionInfo, error) {
	dbVersion, err := database.SchemaVersion(s.db)
	if err != nil {
		return model.VersionInfo{}, err
	}
	return model.VersionInfo{
		AppVersion: version.Version,
		DbVersion:  dbVersion,
	}, nil
}

// StorePriceFeedAPIKey encrypts the price feed API key and persists it.
func (s *SystemService) StorePriceFeedAPIKey(ctx context.Context, apiKey string) error {
	if s.fernetKey == nil {
		return fmt.Errorf("secret storage disabled: no fernet key configured")
	}
	token, err := fernet.EncryptAndSign([]byte(apiKey), s.fernetKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt api key: %w", err)
	}
	return s.settingRepo.Set(ctx, priceFeedAPIKeySetting, string(token))
}

// PriceFeedAPIKey decrypts and returns the stored price feed API key.
// Returns apperrors.ErrSettingNotFound when none has been stored.
func (s *SystemService) PriceFeedAPIKey(ctx context.Context) (string, error) {
	if s.fernetKey == nil {
		return "", fmt.Errorf("secret storage disabled: no fernet key configured")
	}
	token, err := s.settingRepo.Get(ctx, priceFeedAPIKeySetting)
	if err != nil {
		return "", err
	}
	plain := fernet.VerifyAndDecrypt([]byte(token), 0, []*fernet.Key{s.fernetKey})
	if plain == nil {
		return "", fmt.Errorf("stored api key failed verification")
	}
	return string(plain), nil
}
