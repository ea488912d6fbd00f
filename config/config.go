package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	SourceDir   = "dir"
	SourceMinio = "minio"
)

type Config struct {
	Addr string

	StimuliSource     string
	StimuliDir        string
	StimuliExtensions []string

	ResponseLogPath   string
	PreSurveyColumns  bool
	AdminSecretHash   string
	JWTSecret         string
	SessionTTL        time.Duration
	BackupDatabaseURL string
	BackupTimeout     time.Duration
	LogLevel          string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	BucketName     string
	MinioPrefix    string
	MinioUseSSL    bool

	// ошибки разбора значений, сообщаются из Validate
	parseErrs []error
}

// LoadConfig читает .env (если он есть) и переменные окружения.
// Отсутствие файла не считается ошибкой.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("ошибка при загрузке %s: %w", path, err)
	}

	c := &Config{
		Addr:              getenv("SURVEY_ADDR", ":8080"),
		StimuliSource:     strings.ToLower(getenv("STIMULI_SOURCE", SourceDir)),
		StimuliDir:        getenv("STIMULI_DIR", "tones"),
		StimuliExtensions: splitList(getenv("STIMULI_EXTENSIONS", ".wav")),
		ResponseLogPath:   getenv("RESPONSE_LOG_PATH", "responses.csv"),
		AdminSecretHash:   os.Getenv("ADMIN_SECRET_HASH"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		BackupDatabaseURL: os.Getenv("BACKUP_DATABASE_URL"),
		LogLevel:          strings.ToLower(getenv("LOG_LEVEL", "info")),
		MinioEndpoint:     os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:    os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:    os.Getenv("MINIO_SECRET_KEY"),
		BucketName:        os.Getenv("MINIO_BUCKET"),
		MinioPrefix:       os.Getenv("MINIO_PREFIX"),
	}
	c.PreSurveyColumns = c.boolEnv("RESPONSE_LOG_PRESURVEY_COLUMNS", true)
	c.MinioUseSSL = c.boolEnv("MINIO_USE_SSL", false)
	c.SessionTTL = c.durationEnv("SESSION_TTL", 2*time.Hour)
	c.BackupTimeout = c.durationEnv("BACKUP_TIMEOUT", 5*time.Second)

	if c.AdminSecretHash == "" {
		if plain := os.Getenv("ADMIN_SECRET"); plain != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("не удалось захешировать ADMIN_SECRET: %w", err)
			}
			c.AdminSecretHash = string(hash)
		}
	}
	return c, nil
}

// Validate проверяет то, что нужно для запуска сервера.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.parseErrs...)
	switch c.StimuliSource {
	case SourceDir:
		if c.StimuliDir == "" {
			errs = append(errs, errors.New("STIMULI_DIR не задан"))
		}
	case SourceMinio:
		if c.MinioEndpoint == "" || c.BucketName == "" {
			errs = append(errs, errors.New("для STIMULI_SOURCE=minio нужны MINIO_ENDPOINT и MINIO_BUCKET"))
		}
	default:
		errs = append(errs, fmt.Errorf("неизвестный STIMULI_SOURCE %q", c.StimuliSource))
	}
	if c.ResponseLogPath == "" {
		errs = append(errs, errors.New("RESPONSE_LOG_PATH не задан"))
	}
	if c.AdminSecretHash == "" {
		errs = append(errs, errors.New("нужен ADMIN_SECRET_HASH или ADMIN_SECRET"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET не задан"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("неизвестный LOG_LEVEL %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (c *Config) boolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (c *Config) durationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
