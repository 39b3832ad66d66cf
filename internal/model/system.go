package model

import "time"

// VersionInfo contains version and schema information for the application.
type VersionInfo struct {
	AppVersion string `json:"app_version"`
	DbVersion  int64  `json:"db_version"`
}

// SystemSetting is a key/value configuration row. Secret values (price-feed
// API keys) are stored fernet-encrypted.
type SystemSetting struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}
