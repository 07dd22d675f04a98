package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/khagerman/Nostalgia-Machine-backend/models"
)

func defaultConfig() *models.Config {
	return &models.Config{
		Server: models.ServerConfig{
			Host:          "0.0.0.0",
			Port:          "3001",
			AllowedOrigin: "*",
			ShutdownDelay: 5 * time.Second,
		},
		DB: models.DBConfig{
			Host:         "localhost",
			Port:         "5432",
			User:         "postgres",
			Name:         "nostalgia",
			MaxOpenConns: 15,
			MaxIdleConns: 5,
		},
		Auth: models.AuthConfig{BcryptCost: 12},
		Registry: models.RegistryConfig{
			Prefix:   "/services/nostalgia_machine/",
			LeaseTTL: 5,
		},
	}
}

// LoadConfig layers the yaml file over the defaults, then the .env file
// and the process environment over both. Either file may be missing;
// SECRET_KEY may not.
func LoadConfig(configPath, envPath string) (*models.Config, error) {
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envPath, err)
	}

	config := defaultConfig()
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", configPath, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("No config file at %s, using defaults", configPath)
	default:
		return nil, err
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}
	if len(config.Auth.Secret) == 0 {
		return nil, errors.New("SECRET_KEY must be set")
	}
	return config, nil
}

func applyEnv(config *models.Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString("SERVER_HOST", &config.Server.Host)
	setString("PORT", &config.Server.Port)
	setString("HOST_NAME", &config.Server.HostName)
	setString("LOG_FILE", &config.Server.LogFile)
	setString("ALLOWED_ORIGIN", &config.Server.AllowedOrigin)

	setString("DB_HOST", &config.DB.Host)
	setString("DB_PORT", &config.DB.Port)
	setString("DB_USER", &config.DB.User)
	setString("DB_PASSWORD", &config.DB.Password)
	setString("DB_NAME", &config.DB.Name)
	setString("DB_SSLMODE", &config.DB.SSLMode)

	// the replica shares credentials with the primary unless told otherwise
	setString("DB_REPLICA_HOST", &config.Replica.Host)
	if config.Replica.Host != "" {
		replica := config.DB
		replica.Host = config.Replica.Host
		if config.Replica.Port != "" {
			replica.Port = config.Replica.Port
		}
		setString("DB_REPLICA_PORT", &replica.Port)
		config.Replica = replica
	}

	if v := os.Getenv("SECRET_KEY"); v != "" {
		config.Auth.Secret = []byte(v)
	}
	if v := os.Getenv("BCRYPT_WORK_FACTOR"); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BCRYPT_WORK_FACTOR: %w", err)
		}
		config.Auth.BcryptCost = cost
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		config.RateLimiting.RedisAddrs = strings.Split(v, ",")
	}
	setString("REDIS_PASSWORD", &config.RateLimiting.Password)
	if v := os.Getenv("ETCD_ENDPOINTS"); v != "" {
		config.Registry.Endpoints = strings.Split(v, ",")
	}
	return nil
}

// InitLogger sends the log to path when one is configured.
func InitLogger(path string) (*os.File, error) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	return f, nil
}

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,30}$`)

func checkCredentials(req credentialsRequest) error {
	if len(req.Username) == 0 {
		return errors.New("username cannot be empty")
	}
	if !usernameRegex.MatchString(req.Username) {
		return errors.New("username must be at most 30 letters, digits, '.', '_' or '-'")
	}
	if len(req.Password) < 4 {
		return errors.New("password must be at least 4 characters")
	}
	// bcrypt only hashes the first 72 bytes
	if len(req.Password) > 72 {
		return errors.New("password must be at most 72 bytes")
	}
	return nil
}

func checkTitle(title string) error {
	if n := len([]rune(title)); n == 0 || n > 100 {
		return errors.New("title must be between 1 and 100 characters")
	}
	return nil
}

func checkUrl(url string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("url cannot be empty")
	}
	return nil
}

func checkNewPost(req newPostRequest) error {
	if err := checkTitle(req.Title); err != nil {
		return err
	}
	if err := checkUrl(req.Url); err != nil {
		return err
	}
	if req.Decade_id <= 0 {
		return errors.New("decade_id must be a positive integer")
	}
	return nil
}

func checkPostUpdate(update models.PostUpdate) error {
	if update.Title == nil && update.Url == nil {
		return errors.New("nothing to update")
	}
	if update.Title != nil {
		if err := checkTitle(*update.Title); err != nil {
			return err
		}
	}
	if update.Url != nil {
		return checkUrl(*update.Url)
	}
	return nil
}

func checkCommentText(text string) error {
	if n := len([]rune(text)); n == 0 || n > 100 {
		return errors.New("text must be between 1 and 100 characters")
	}
	return nil
}

func checkDecadeName(name string) error {
	if n := len([]rune(name)); n == 0 || n > 50 {
		return errors.New("name must be between 1 and 50 characters")
	}
	return nil
}

func checkDecadeUpdate(update models.DecadeUpdate) error {
	if update.Name == nil && update.Description == nil {
		return errors.New("nothing to update")
	}
	if update.Name != nil {
		return checkDecadeName(*update.Name)
	}
	return nil
}
