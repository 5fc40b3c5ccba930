package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"
	defaultProviderTimeout    = 5 * time.Second
	defaultAccessCookie       = "sb-access-token"
	defaultRefreshCookie      = "sb-refresh-token"

	// EnvDevelopment is the env.env value that enables development-only behaviour
	EnvDevelopment = "development"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	Database DatabaseConfig `json:"database" yaml:"database"`

	SecretKey struct {
		Access  string `json:"access" yaml:"access"`
		Refresh string `json:"refresh" yaml:"refresh"`
	} `json:"secretKey" yaml:"secretKey"`

	App AppConfig `json:"app" yaml:"app"`

	// Firebase holds the identity provider credentials
	Firebase *FirebaseConfig `json:"firebase" yaml:"firebase"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	Session SessionConfig `json:"session" yaml:"session"`

	// Routes overrides the built-in route classification tables
	Routes *RoutesConfig `json:"routes" yaml:"routes"`

	// Frontend is the page renderer that unmatched page requests are proxied to
	Frontend *FrontendConfig `json:"frontend" yaml:"frontend"`

	// PubSub configuration for auth event publishing
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`

	// QRCode configuration for share link QR codes
	QRCode *QRCodeConfig `json:"qrcode" yaml:"qrcode"`
}

// DatabaseConfig holds schema management settings
type DatabaseConfig struct {
	AutoMigrate bool `json:"autoMigrate" yaml:"autoMigrate"`
}

// AppConfig describes where the application is reachable from the outside
type AppConfig struct {
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`
}

// FirebaseConfig defines the Firebase Authentication credentials.
// Either CredentialsPath or the ClientEmail/PrivateKey pair must be set.
type FirebaseConfig struct {
	ProjectID       string `json:"projectId" yaml:"projectId"`
	ClientEmail     string `json:"clientEmail" yaml:"clientEmail"`
	PrivateKey      string `json:"privateKey" yaml:"privateKey"`
	CredentialsPath string `json:"credentialsPath" yaml:"credentialsPath"`
	// Required makes missing credentials a startup failure instead of a per-request one
	Required bool `json:"required" yaml:"required"`
	// CheckRevoked also rejects revoked tokens and disabled accounts (one extra provider call)
	CheckRevoked bool `json:"checkRevoked" yaml:"checkRevoked"`
}

// HasCredentials reports whether enough is configured to build a Firebase app.
func (f *FirebaseConfig) HasCredentials() bool {
	if f == nil {
		return false
	}
	if f.CredentialsPath != "" {
		return true
	}

	return f.ProjectID != "" && f.ClientEmail != "" && f.PrivateKey != ""
}

// AuthConfig defines authentication-related configuration
type AuthConfig struct {
	BcryptCost        int  `json:"bcryptCost" yaml:"bcryptCost"`
	MaxActiveSessions int  `json:"maxActiveSessions" yaml:"maxActiveSessions"`
	AutoCreateUsers   bool `json:"autoCreateUsers" yaml:"autoCreateUsers"`
	// DevAdminBypass skips the admin role check, honoured only when env is development
	DevAdminBypass  bool          `json:"devAdminBypass" yaml:"devAdminBypass"`
	ProviderTimeout time.Duration `json:"providerTimeout" yaml:"providerTimeout"`
}

// SessionConfig defines the cookie session settings
type SessionConfig struct {
	AccessCookie  string        `json:"accessCookie" yaml:"accessCookie"`
	RefreshCookie string        `json:"refreshCookie" yaml:"refreshCookie"`
	Secure        *bool         `json:"secure" yaml:"secure"`
	AccessTTL     time.Duration `json:"accessTTL" yaml:"accessTTL"`
	RefreshTTL    time.Duration `json:"refreshTTL" yaml:"refreshTTL"`
}

// RoutesConfig replaces the default prefix tables when a list is non-empty
type RoutesConfig struct {
	Static   []string `json:"static" yaml:"static"`
	Public   []string `json:"public" yaml:"public"`
	AuthOnly []string `json:"authOnly" yaml:"authOnly"`
	Admin    []string `json:"admin" yaml:"admin"`
}

// FrontendConfig points at the page renderer
type FrontendConfig struct {
	URL string `json:"url" yaml:"url"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// PubSubConfig defines Pub/Sub configuration for event publishing
type PubSubConfig struct {
	// Provider type: "local" for local HTTP or "google" for Google Pub/Sub
	Provider string `json:"provider" yaml:"provider"`

	ProjectID string `json:"projectId" yaml:"projectId"`
	TopicID   string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// Supported pubsub.provider values.
const (
	PubSubProviderLocal  = "local"
	PubSubProviderGoogle = "google"
)

// QRCodeConfig defines QR code generation configuration
type QRCodeConfig struct {
	Size                 int    `json:"size" yaml:"size"`
	ErrorCorrectionLevel string `json:"errorCorrectionLevel" yaml:"errorCorrectionLevel"`
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env.Env, EnvDevelopment)
}

// VerifyPushAuth reports whether worker push requests must carry a Google-signed OIDC token.
func (c *Config) VerifyPushAuth() bool {
	return c.PubSub != nil && c.PubSub.Provider == PubSubProviderGoogle && !c.IsDevelopment()
}

// ExposeErrorDetails reports whether internal error details may reach clients.
func (c *Config) ExposeErrorDetails() bool {
	return c.IsDevelopment() || c.Env.Debug
}

// SecureCookies reports whether session cookies carry the Secure attribute. Defaults to true.
func (c *Config) SecureCookies() bool {
	if c.Session.Secure == nil {
		return true
	}

	return *c.Session.Secure
}

// ProviderTimeout bounds every call to the identity provider.
func (c *Config) ProviderTimeout() time.Duration {
	if c.Auth == nil || c.Auth.ProviderTimeout <= 0 {
		return defaultProviderTimeout
	}

	return c.Auth.ProviderTimeout
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: POSTGRES_SSLMODE -> postgres.sslMode (not postgres.sslmode)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	if cfg.Session.AccessCookie == "" {
		cfg.Session.AccessCookie = defaultAccessCookie
	}
	if cfg.Session.RefreshCookie == "" {
		cfg.Session.RefreshCookie = defaultRefreshCookie
	}
	if cfg.Auth == nil {
		cfg.Auth = &AuthConfig{}
	}
	// Private keys pasted into env vars usually carry escaped newlines
	if cfg.Firebase != nil {
		cfg.Firebase.PrivateKey = strings.ReplaceAll(cfg.Firebase.PrivateKey, `\n`, "\n")
	}

	if cfg.Postgres == nil {
		return nil, errors.New("postgres configuration is required")
	}
	// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
	cfg.Postgres.Replicas = buildReplicasFromEnv()

	return cfg, nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, POSTGRES_REPLICAS_0_USERNAME, POSTGRES_REPLICAS_0_PASSWORD
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
