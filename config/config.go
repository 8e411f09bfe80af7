package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Config holds every setting the server needs. It is built once in main and
// passed down explicitly; request handlers never read the environment.
type Config struct {
	APIPrefix string `envconfig:"API_URL" default:"/api/v1"`
	Port      string `envconfig:"PORT" default:"3000"`

	StoreDriver   string `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DB" default:"db-Eshop"`

	Secret         string        `envconfig:"SECRET" required:"true"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	RevokeNonAdmin bool          `envconfig:"REVOKE_NON_ADMIN" default:"true"`

	AllowEmptyOrders bool          `envconfig:"ALLOW_EMPTY_ORDERS" default:"true"`
	UploadDir        string        `envconfig:"UPLOAD_DIR" default:"public/uploads"`
	RequestTimeout   time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`

	PostmarkToken string `envconfig:"POSTMARK_API_TOKEN"`
	EmailSender   string `envconfig:"EMAIL_SENDER"`
}

// Load reads an optional .env file and then the process environment.
func Load(logger *logrus.Logger) (*Config, error) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		logger.Warnf("Error loading .env file (but continuing): %v", err)
	} else if err == nil {
		logger.Info("Loaded configuration from .env file")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"api_prefix": cfg.APIPrefix,
		"port":       cfg.Port,
		"store":      cfg.StoreDriver,
		"upload_dir": cfg.UploadDir,
	}).Info("Configuration loaded")
	return &cfg, nil
}

// Validate normalizes the prefix and rejects unusable combinations.
func (c *Config) Validate() error {
	c.APIPrefix = "/" + strings.Trim(c.APIPrefix, "/")
	if c.APIPrefix == "/" {
		return fmt.Errorf("API_URL must not be empty")
	}
	if c.Secret == "" {
		return fmt.Errorf("SECRET must be set")
	}
	switch c.StoreDriver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}

// MailEnabled reports whether order confirmation mail can be sent.
func (c *Config) MailEnabled() bool {
	return c.PostmarkToken != "" && c.EmailSender != ""
}
