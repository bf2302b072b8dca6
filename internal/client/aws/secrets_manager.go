package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/logger"
)

// SecretsAPI is the part of the Secrets Manager client we call.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerClient resolves secrets from Secrets Manager with an
// environment variable fallback.
type SecretsManagerClient struct {
	svc    SecretsAPI
	getenv func(string) string
}

// NewSecretsManagerClient creates a client from an AWS config.
func NewSecretsManagerClient(cfg aws.Config) *SecretsManagerClient {
	return NewSecretsManagerClientWithAPI(secretsmanager.NewFromConfig(cfg), os.Getenv)
}

// NewSecretsManagerClientWithAPI creates a client around an existing API
// implementation. A nil getenv uses os.Getenv.
func NewSecretsManagerClientWithAPI(svc SecretsAPI, getenv func(string) string) *SecretsManagerClient {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &SecretsManagerClient{svc: svc, getenv: getenv}
}

// GetSecretString fetches the secret named by the ARN in secretArnEnvVar.
// If that variable is unset or the fetch fails, the value of fallbackEnvVar
// is used. A JSON secret of the form {"<jsonKey>": "..."} is unwrapped.
func (c *SecretsManagerClient) GetSecretString(ctx context.Context, secretArnEnvVar, fallbackEnvVar, jsonKey string) (string, error) {
	secretArn := c.getenv(secretArnEnvVar)

	if secretArn != "" && c.svc != nil {
		logger.Debug("fetching secret from Secrets Manager", zap.String("arnEnvVar", secretArnEnvVar))
		result, err := c.svc.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(secretArn),
		})
		if err == nil && result.SecretString != nil && *result.SecretString != "" {
			return unwrapSecret(*result.SecretString, jsonKey), nil
		}
		logger.Warn("failed to retrieve secret from Secrets Manager, falling back to env var",
			zap.String("secretArnEnvVar", secretArnEnvVar),
			zap.String("fallbackEnvVar", fallbackEnvVar),
			zap.Error(err),
		)
	}

	if secretValue := c.getenv(fallbackEnvVar); secretValue != "" {
		return secretValue, nil
	}

	return "", fmt.Errorf("secret not found using ARN env var '%s' or direct env var '%s'", secretArnEnvVar, fallbackEnvVar)
}

// DatabaseSecret is the RDS-style credential secret.
type DatabaseSecret struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"dbname"`
}

// DSN renders the secret as a postgres connection URL.
func (s DatabaseSecret) DSN() string {
	port := s.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(s.Username, s.Password),
		Host:   s.Host + ":" + strconv.Itoa(port),
		Path:   "/" + s.DBName,
	}
	return u.String()
}

// GetDatabaseURL resolves the database connection string. A JSON secret
// behind secretArnEnvVar wins; otherwise fallbackEnvVar must hold a DSN.
func (c *SecretsManagerClient) GetDatabaseURL(ctx context.Context, secretArnEnvVar, fallbackEnvVar string) (string, error) {
	secretArn := c.getenv(secretArnEnvVar)
	if secretArn != "" && c.svc != nil {
		result, err := c.svc.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(secretArn),
		})
		if err == nil && result.SecretString != nil {
			var secret DatabaseSecret
			if err = json.Unmarshal([]byte(*result.SecretString), &secret); err == nil && secret.Host != "" {
				return secret.DSN(), nil
			}
		}
		logger.Warn("failed to resolve database secret, falling back to env var",
			zap.String("secretArnEnvVar", secretArnEnvVar),
			zap.Error(err),
		)
	}

	if dsn := c.getenv(fallbackEnvVar); dsn != "" {
		return dsn, nil
	}
	return "", fmt.Errorf("database url not found using ARN env var '%s' or direct env var '%s'", secretArnEnvVar, fallbackEnvVar)
}

func unwrapSecret(raw, jsonKey string) string {
	if jsonKey == "" {
		return raw
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return raw
	}
	if v, ok := m[jsonKey].(string); ok && v != "" {
		return v
	}
	return raw
}
