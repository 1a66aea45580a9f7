package services

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// VaultClient reads deployment secrets from HashiCorp Vault
type VaultClient struct {
	client *api.Client
	logger *zap.Logger
}

// VaultSecret represents a secret stored in Vault
type VaultSecret struct {
	Data map[string]interface{} `json:"data"`
}

// NewVaultClient creates a new Vault client
func NewVaultClient(baseURL, token string, logger *zap.Logger) (*VaultClient, error) {
	config := &api.Config{
		Address: baseURL,
		HttpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	client.SetToken(token)

	return &VaultClient{
		client: client,
		logger: logger,
	}, nil
}

// GetSecret retrieves a secret from Vault. KV v2 responses are unwrapped.
func (v *VaultClient) GetSecret(path string) (*VaultSecret, error) {
	secret, err := v.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no secret data found at %s", path)
	}

	data := secret.Data
	if nested, ok := data["data"].(map[string]interface{}); ok {
		data = nested
	}

	return &VaultSecret{Data: data}, nil
}

func (v *VaultClient) stringSecrets(path string) (map[string]string, error) {
	secret, err := v.GetSecret(path)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	for key, value := range secret.Data {
		switch typed := value.(type) {
		case string:
			values[key] = typed
		case fmt.Stringer:
			values[key] = typed.String()
		case float64, int, int64, bool:
			values[key] = fmt.Sprint(typed)
		}
	}
	return values, nil
}

// GetDatabaseCredentials retrieves database credentials stored under basePath
func (v *VaultClient) GetDatabaseCredentials(basePath string) (map[string]string, error) {
	creds, err := v.stringSecrets(strings.TrimSuffix(basePath, "/") + "/database")
	if err != nil {
		return nil, fmt.Errorf("failed to get database credentials: %w", err)
	}
	return creds, nil
}

// GetRedisCredentials retrieves Redis credentials stored under basePath
func (v *VaultClient) GetRedisCredentials(basePath string) (map[string]string, error) {
	creds, err := v.stringSecrets(strings.TrimSuffix(basePath, "/") + "/redis")
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis credentials: %w", err)
	}
	return creds, nil
}

// databaseKeys maps vault secret fields onto configuration keys
var databaseKeys = map[string]string{
	"host":     "database.host",
	"port":     "database.port",
	"user":     "database.user",
	"password": "database.password",
	"name":     "database.name",
	"ssl_mode": "database.ssl_mode",
}

var redisKeys = map[string]string{
	"url":      "redis.url",
	"password": "redis.password",
	"db":       "redis.db",
}

// LoadSecretsFromVault returns configuration overrides keyed by config key.
// Missing secrets are logged and skipped.
func (v *VaultClient) LoadSecretsFromVault(basePath string) (map[string]string, error) {
	secrets := make(map[string]string)

	if dbCreds, err := v.GetDatabaseCredentials(basePath); err == nil {
		for field, key := range databaseKeys {
			if value, ok := dbCreds[field]; ok && value != "" {
				secrets[key] = value
			}
		}
	} else {
		v.logger.Warn("Failed to load database credentials from Vault", zap.Error(err))
	}

	if redisCreds, err := v.GetRedisCredentials(basePath); err == nil {
		for field, key := range redisKeys {
			if value, ok := redisCreds[field]; ok && value != "" {
				secrets[key] = value
			}
		}
	} else {
		v.logger.Warn("Failed to load Redis credentials from Vault", zap.Error(err))
	}

	return secrets, nil
}

// HealthCheck checks if Vault is accessible
func (v *VaultClient) HealthCheck() error {
	_, err := v.client.Sys().Health()
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	return nil
}

// RenewToken renews the Vault token
func (v *VaultClient) RenewToken() error {
	_, err := v.client.Auth().Token().RenewSelf(0)
	if err != nil {
		return fmt.Errorf("failed to renew Vault token: %w", err)
	}
	return nil
}
