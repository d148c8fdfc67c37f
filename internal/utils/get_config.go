package utils

import (
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2/log"
	"gopkg.in/yaml.v2"
)

type Config struct {
	// App
	AppPort     string `yaml:"APP_PORT"`
	AppTimezone string `yaml:"APP_TIMEZONE"`

	// Database configuration
	DBUser     string `yaml:"DB_USER"`
	DBName     string `yaml:"DB_NAME"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBPort     string `yaml:"DB_PORT"`
	DBHost     string `yaml:"DB_HOST"`

	// JWT
	JWTSecret string `yaml:"JWT_SECRET"`

	// Mailing configuration
	AppURL           string `yaml:"APP_URL"`
	SMTPHost         string `yaml:"SMTP_HOST"`
	SMTPPort         string `yaml:"SMTP_PORT"`
	SMTPSenderName   string `yaml:"SMTP_SENDER_NAME"`
	SMTPAuthEmail    string `yaml:"SMTP_AUTH_EMAIL"`
	SMTPAuthPassword string `yaml:"SMTP_AUTH_PASSWORD"`

	// AWS S3 configuration
	AWSS3Bucket  string `yaml:"AWS_S3_BUCKET"`
	AWSS3Region  string `yaml:"AWS_S3_REGION"`
	AWSAccessKey string `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey string `yaml:"AWS_SECRET_KEY"`

	// AI Model Service
	AIModelURL string `yaml:"AI_MODEL_URL"`

	// Lifecycle
	PickupEarlyMinutes       int    `yaml:"PICKUP_EARLY_MINUTES"`
	PickupLateMinutes        int    `yaml:"PICKUP_LATE_MINUTES"`
	SchedulerIntervalSeconds int    `yaml:"SCHEDULER_INTERVAL_SECONDS"`
	ExpiryNotifyThresholds   string `yaml:"EXPIRY_NOTIFY_THRESHOLDS"`
}

var config Config

// LoadConfig reads path into the package config. A missing or malformed
// file is logged and leaves the previous values in place.
func LoadConfig(path string) {
	file, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("Error reading YAML file: %s", err)
		return
	}

	var loaded Config
	err = yaml.Unmarshal(file, &loaded)
	if err != nil {
		log.Warnf("Error parsing YAML file: %s", err)
		return
	}
	config = loaded

	// Set environment variables for keys that should be accessible via os.Getenv
	os.Setenv("JWT_SECRET", config.JWTSecret)
	os.Setenv("AWS_S3_BUCKET", config.AWSS3Bucket)
	os.Setenv("AWS_S3_REGION", config.AWSS3Region)
	os.Setenv("AWS_ACCESS_KEY", config.AWSAccessKey)
	os.Setenv("AWS_SECRET_KEY", config.AWSSecretKey)
	os.Setenv("AI_MODEL_URL", config.AIModelURL)
}

func GetConfig(key string) string {
	switch key {
	case "APP_PORT":
		return config.AppPort
	case "APP_TIMEZONE":
		return config.AppTimezone
	case "DB_USER":
		return config.DBUser
	case "DB_NAME":
		return config.DBName
	case "DB_PASSWORD":
		return config.DBPassword
	case "DB_PORT":
		return config.DBPort
	case "DB_HOST":
		return config.DBHost
	case "JWT_SECRET":
		return config.JWTSecret
	case "APP_URL":
		return config.AppURL
	case "SMTP_HOST":
		return config.SMTPHost
	case "SMTP_PORT":
		return config.SMTPPort
	case "SMTP_SENDER_NAME":
		return config.SMTPSenderName
	case "SMTP_AUTH_EMAIL":
		return config.SMTPAuthEmail
	case "SMTP_AUTH_PASSWORD":
		return config.SMTPAuthPassword
	case "AWS_S3_BUCKET":
		return config.AWSS3Bucket
	case "AWS_S3_REGION":
		return config.AWSS3Region
	case "AWS_ACCESS_KEY":
		return config.AWSAccessKey
	case "AWS_SECRET_KEY":
		return config.AWSSecretKey
	case "AI_MODEL_URL":
		return config.AIModelURL
	case "PICKUP_EARLY_MINUTES":
		return intString(config.PickupEarlyMinutes)
	case "PICKUP_LATE_MINUTES":
		return intString(config.PickupLateMinutes)
	case "SCHEDULER_INTERVAL_SECONDS":
		return intString(config.SchedulerIntervalSeconds)
	case "EXPIRY_NOTIFY_THRESHOLDS":
		return config.ExpiryNotifyThresholds
	default:
		return ""
	}
}

// Unset integers read back as "" so callers can apply their defaults.
func intString(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
