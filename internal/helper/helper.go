package helper

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/gomail.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"care-assess/internal/logger"
	"care-assess/internal/model"
)

var loadEnv sync.Once

// GetConfig returns the value of key, loading .env on first use
func GetConfig(key string) string {
	loadEnv.Do(func() {
		// a missing .env is fine, the environment may be set directly
		_ = godotenv.Load(".env")
	})
	return os.Getenv(key)
}

// GetConfigOr returns the value of key or def when it is unset
func GetConfigOr(key, def string) string {
	if v := GetConfig(key); v != "" {
		return v
	}
	return def
}

// GetConfigInt returns key parsed as an int or def when unset or invalid
func GetConfigInt(key string, def int) int {
	v, err := strconv.Atoi(GetConfig(key))
	if err != nil {
		return def
	}
	return v
}

// DSN builds the postgres connection string from DB_* settings
func DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		GetConfigOr("DB_HOST", "localhost"),
		GetConfigInt("DB_PORT", 5432),
		GetConfigOr("DB_USER", "postgres"),
		GetConfig("DB_PASSWORD"),
		GetConfigOr("DB_NAME", "care_assess"),
		GetConfigOr("DB_SSLMODE", "disable"))
}

// ConnectDB opens the database, retrying while it comes up, and migrates
// the schema.
func ConnectDB() (*gorm.DB, error) {
	log := logger.New().WithField("component", "db")

	var db *gorm.DB
	op := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(DSN()), &gorm.Config{})
		if err != nil {
			log.WithError(err).Warn("database not reachable yet")
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return backoff.Permanent(err)
		}
		return sqlDB.Ping()
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(op, bo); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Info("connection opened to database")

	if err := db.AutoMigrate(model.All()...); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	log.Info("database migrated")
	return db, nil
}

// MailEnabled reports whether SMTP is configured
func MailEnabled() bool {
	return GetConfig("SMTP_HOST") != ""
}

func SendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", GetConfigOr("SMTP_FROM", "Care Assess <no-reply@localhost>"))
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("[Care Assess] %v", subject))
	m.SetBody("text/html", body)

	d := gomail.NewDialer(GetConfig("SMTP_HOST"), GetConfigInt("SMTP_PORT", 587), GetConfig("SMTP_USER"), GetConfig("SMTP_PASSWORD"))

	return d.DialAndSend(m)
}

// DataDir is where uploaded audio is stored
func DataDir() string {
	return GetConfigOr("DATA_DIR", "data")
}

// RecordingFilename returns a fresh storage path for an upload, keeping the
// original extension so the transcription provider can detect the codec.
func RecordingFilename(original string) string {
	return filepath.Join(DataDir(), uuid.NewString()+filepath.Ext(original))
}

// RandomKey returns 32 random bytes for signing sessions when no key is
// configured
func RandomKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return string(b)
}
