package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverRedis    = "redis"
)

// minProductionSecret is the shortest HMAC secret accepted outside development.
const minProductionSecret = 32

type Config struct {
	Port            string        `env:"PORT,             default=3000"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	StoreDriver     string        `env:"STORE_DRIVER,     default=postgres"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`
	// CORSOrigin is a comma-separated list of allowed browser origins.
	CORSOrigin      string        `env:"CORS_ORIGIN,      default=http://localhost:3000"`

	Auth     AuthConfig
	Postgres PostgresConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

type AuthConfig struct {
	JWTSecret         string        `env:"JWT_SECRET"`
	JWTExpiresIn      time.Duration `env:"JWT_EXPIRES_IN,     default=168h"`
	JWTIssuer         string        `env:"JWT_ISSUER,         default=deathkiller-api"`
	JWTAudience       string        `env:"JWT_AUDIENCE,       default=deathkiller-app"`
	PasswordAlgorithm string        `env:"PASSWORD_ALGORITHM, default=bcrypt"`
	BcryptCost        int           `env:"BCRYPT_COST,        default=12"`
}

type PostgresConfig struct {
	URL            string        `env:"DATABASE_URL"`
	Host           string        `env:"DB_HOST,            default=localhost"`
	Port           string        `env:"DB_PORT,            default=5432"`
	Name           string        `env:"DB_NAME,            default=deathkiller_db"`
	User           string        `env:"DB_USER,            default=postgres"`
	Password       string        `env:"DB_PASSWORD"`
	SSLMode        string        `env:"DB_SSLMODE,         default=disable"`
	MaxConns       int32         `env:"DB_MAX_CONNS,       default=20"`
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT, default=2s"`
	Migrate        bool          `env:"DB_MIGRATE,         default=true"`
}

// DSN returns DATABASE_URL when set, otherwise a URL built from the DB_* parts.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, p.Port),
		Path:     "/" + p.Name,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=deathkiller_db"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// CORSOrigins splits CORS_ORIGIN into its trimmed, non-empty entries.
func (c *Config) CORSOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// IsDevelopment reports whether the process runs with ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads an optional .env file, then the process environment. Variables
// already set in the environment win over the file.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the process cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.Auth.JWTSecret == "":
		errs = append(errs, errors.New("JWT_SECRET is required"))
	case !c.IsDevelopment() && len(c.Auth.JWTSecret) < minProductionSecret:
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes outside development", minProductionSecret))
	}

	if c.Auth.JWTExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}

	switch c.Auth.PasswordAlgorithm {
	case "bcrypt", "argon2id":
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_ALGORITHM %q is not supported", c.Auth.PasswordAlgorithm))
	}

	switch c.StoreDriver {
	case DriverPostgres, DriverMongo, DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not supported", c.StoreDriver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
