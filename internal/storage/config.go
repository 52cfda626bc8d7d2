package storage

import (
	"fmt"
	"time"

	"rentchain-backend/internal/config"
)

// New builds the content store selected by cfg.Type.
func New(cfg config.StorageConfig) (ContentStore, error) {
	switch cfg.Type {
	case "", "mock":
		return NewLocalStore(cfg.UploadDir)
	case "pinata":
		return NewPinataStore(PinataOptions{
			BaseURL:    cfg.PinataBaseURL,
			GatewayURL: cfg.GatewayURL,
			APIKey:     cfg.PinataAPIKey,
			SecretKey:  cfg.PinataSecretKey,
			JWT:        cfg.PinataJWT,
			Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		}), nil
	}
	return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
}
