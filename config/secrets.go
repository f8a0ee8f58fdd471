package config

import (
	"context"
	"encoding/json"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1beta1"
	"github.com/pkg/errors"
	secretmanagerpb "google.golang.org/genproto/googleapis/cloud/secretmanager/v1beta1"
)

// SecretReader returns the payload of a secret version
type SecretReader interface {
	Read(ctx context.Context, name string) ([]byte, error)
}

// SecretManager reads versions from Google Secret Manager
type SecretManager struct {
	client *secretmanager.Client
}

// NewSecretManager connects with default credentials
func NewSecretManager(ctx context.Context) (*SecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "secret manager client")
	}
	return &SecretManager{client: client}, nil
}

// Read accesses one secret version
func (s *SecretManager) Read(ctx context.Context, name string) ([]byte, error) {
	res, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, errors.Wrapf(err, "access secret %s", name)
	}
	return res.Payload.Data, nil
}

// Close the client
func (s *SecretManager) Close() error {
	return s.client.Close()
}

type marketplaceSecret struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// NeedsSecrets is true when any secret version is configured
func (c *Config) NeedsSecrets() bool {
	return c.Secrets.Marketplace != "" || c.Secrets.Warehouse != ""
}

// ResolveSecrets fills api credentials and the mysql dsn from the configured versions
func (c *Config) ResolveSecrets(ctx context.Context, r SecretReader) error {
	if c.Secrets.Marketplace != "" {
		data, err := r.Read(ctx, c.Secrets.Marketplace)
		if err != nil {
			return err
		}
		var s marketplaceSecret
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Wrap(err, "decode marketplace secret")
		}
		c.API.ClientID = s.ClientID
		c.API.ClientSecret = s.ClientSecret
	}
	if c.Secrets.Warehouse != "" {
		data, err := r.Read(ctx, c.Secrets.Warehouse)
		if err != nil {
			return err
		}
		c.MySQL.DSN = strings.TrimSpace(string(data))
	}
	return nil
}
