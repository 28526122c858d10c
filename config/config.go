package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`
	DBHost  string `json:"dbhost"`
	DBPort  uint16 `json:"dbport"`
	DBName  string `json:"dbname"`
	DBUser  string `json:"dbuser"`
	DBPass  string `json:"dbpass"`
}

var (
	config *Config
	once   sync.Once
)

// envPort parses a port environment variable, zero when unset or invalid.
func envPort(key string) uint16 {
	port, _ := strconv.ParseUint(os.Getenv(key), 10, 16)
	return uint16(port)
}

// LoadConfig reads the environment into a singleton Config. A .env file is
// merged in when present; deployed environments inject variables directly.
func LoadConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file loaded: %v", err)
		}
		config = &Config{
			AppName: os.Getenv("APP_NAME"),
			AppEnv:  os.Getenv("APP_ENV"),
			AppPort: envPort("APP_PORT"),
			GinMode: os.Getenv("GIN_MODE"),
			DBHost:  os.Getenv("DB_HOST"),
			DBPort:  envPort("DB_PORT"),
			DBName:  os.Getenv("DB_NAME"),
			DBUser:  os.Getenv("DB_USER"),
			DBPass:  os.Getenv("DB_PASSWORD"),
		}
	})
	return config
}

func mysqlDSN(cfg *Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&timeout=5s", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

// ConnectMySQL opens the portal database. Under APP_ENV=test it opens a
// shared in-memory SQLite database instead, so the suite runs without a
// MySQL server.
func ConnectMySQL() (*gorm.DB, error) {
	cfg := LoadConfig()
	if cfg.AppEnv == "test" || os.Getenv("APP_ENV") == "test" {
		return gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	}
	return gorm.Open(mysql.Open(mysqlDSN(cfg)), &gorm.Config{})
}
