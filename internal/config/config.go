package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// HasAttachments switches the webhook to the attachment-aware decryptor.
// Attachment download is not supported by this service, so it stays off.
const HasAttachments = false

// Default FormSG field identifiers of the evaluation form.
const (
	DefaultFirstNameField  = "632949d73a132e0012c629fe"
	DefaultLastNameField   = "632949de184d400012e3f9ff"
	DefaultPostalCodeField = "632949eb79c05e001238386b"
)

// JWTConfig defines issuer/secret pair for auth verification.
type JWTConfig struct {
	Issuer string
	Secret []byte
}

// FieldConfig names the form questions whose answers are persisted.
type FieldConfig struct {
	FirstName  string
	LastName   string
	PostalCode string
}

// Config holds runtime configuration shared across the application.
// It is read once at startup and passed by value afterwards.
type Config struct {
	Addr               string
	MongoURI           string
	MongoDatabase      string
	ResponseCollection string
	Timeout            time.Duration
	PostURI            string
	FormSecretKey      string
	FormSGMode         string
	SigningPublicKey   string
	SignatureMaxAge    time.Duration
	Fields             FieldConfig
	AllowedOrigins     []string
	ResponsesJWT       *JWTConfig
	ServerLog          *logrus.Logger
}

// Load reads environment variables, optionally layered over a YAML file at path,
// and returns a fully populated Config.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("MONGO_URL", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "formsg-evaltest")
	v.SetDefault("RESPONSE_COLLECTION", "responses")
	v.SetDefault("MONGO_CONNECT_TIMEOUT", "10s")
	v.SetDefault("PORT", "7000")
	v.SetDefault("FORMSG_MODE", "production")
	v.SetDefault("FORMSG_SIGNATURE_MAX_AGE", "5m")
	v.SetDefault("FIELD_FIRST_NAME", DefaultFirstNameField)
	v.SetDefault("FIELD_LAST_NAME", DefaultLastNameField)
	v.SetDefault("FIELD_POSTAL_CODE", DefaultPostalCodeField)
	v.SetDefault("RESPONSES_JWT_ISSUER", "formsg-intake")
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	logger, err := newLogger(v.GetString("LOG_LEVEL"))
	if err != nil {
		return Config{}, err
	}

	timeout, err := parseDuration(v, "MONGO_CONNECT_TIMEOUT")
	if err != nil {
		return Config{}, err
	}
	maxAge, err := parseDuration(v, "FORMSG_SIGNATURE_MAX_AGE")
	if err != nil {
		return Config{}, err
	}

	postURI := strings.TrimSpace(v.GetString("POST_URI"))
	if postURI == "" {
		return Config{}, errors.New("POST_URI must be configured")
	}
	secretKey := strings.TrimSpace(v.GetString("FORM_SECRET_KEY"))
	if secretKey == "" {
		return Config{}, errors.New("FORM_SECRET_KEY must be configured")
	}

	var responsesJWT *JWTConfig
	if secret := strings.TrimSpace(v.GetString("RESPONSES_JWT_SECRET")); secret != "" {
		responsesJWT = &JWTConfig{
			Issuer: strings.TrimSpace(v.GetString("RESPONSES_JWT_ISSUER")),
			Secret: []byte(secret),
		}
	}

	cfg := Config{
		Addr:               ":" + strings.TrimPrefix(strings.TrimSpace(v.GetString("PORT")), ":"),
		MongoURI:           v.GetString("MONGO_URL"),
		MongoDatabase:      v.GetString("MONGO_DB"),
		ResponseCollection: v.GetString("RESPONSE_COLLECTION"),
		Timeout:            timeout,
		PostURI:            postURI,
		FormSecretKey:      secretKey,
		FormSGMode:         strings.ToLower(strings.TrimSpace(v.GetString("FORMSG_MODE"))),
		SigningPublicKey:   strings.TrimSpace(v.GetString("FORMSG_SIGNING_PUBLIC_KEY")),
		SignatureMaxAge:    maxAge,
		Fields: FieldConfig{
			FirstName:  strings.TrimSpace(v.GetString("FIELD_FIRST_NAME")),
			LastName:   strings.TrimSpace(v.GetString("FIELD_LAST_NAME")),
			PostalCode: strings.TrimSpace(v.GetString("FIELD_POSTAL_CODE")),
		},
		AllowedOrigins: parseList(v.GetString("API_ALLOWED_ORIGINS"), []string{"*"}),
		ResponsesJWT:   responsesJWT,
		ServerLog:      logger,
	}

	cfg.ServerLog.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.MongoDatabase,
		"postURI":  cfg.PostURI,
		"mode":     cfg.FormSGMode,
	}).Info("loaded config")

	return cfg, nil
}

func newLogger(level string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.Out = os.Stdout
	logger.Formatter = &logrus.TextFormatter{
		DisableLevelTruncation: true,
		PadLevelText:           true,
		TimestampFormat:        "2006/01/02 15:04:05",
		FullTimestamp:          true,
	}
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	logger.Level = parsed
	return logger, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func parseList(raw string, fallback []string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}
