package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort       string `mapstructure:"HTTP_PORT"`
	GRPCPort       string `mapstructure:"GRPC_PORT"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	RedisAddr  string `mapstructure:"REDIS_ADDR"`

	HederaNetwork     string `mapstructure:"HEDERA_NETWORK"`
	HederaOperatorID  string `mapstructure:"HEDERA_OPERATOR_ID"`
	HederaOperatorKey string `mapstructure:"HEDERA_OPERATOR_KEY"`
	HederaNFTTokenID  string `mapstructure:"HEDERA_NFT_TOKEN_ID"`
	HederaHCSTopicID  string `mapstructure:"HEDERA_HCS_TOPIC_ID"`

	IPFSAPIURL  string `mapstructure:"IPFS_API_URL"`
	IPFSGateway string `mapstructure:"IPFS_GATEWAY"`
	IPFSToken   string `mapstructure:"IPFS_API_TOKEN"`

	MinDuration      int           `mapstructure:"MIN_DURATION"`
	MaxDuration      int           `mapstructure:"MAX_DURATION"`
	MinMintSessions  int           `mapstructure:"MIN_MINT_SESSIONS"`
	RetryMaxAttempts int           `mapstructure:"RETRY_MAX_ATTEMPTS"`
	MintLockTTL      time.Duration `mapstructure:"MINT_LOCK_TTL"`
	PublicKeyTTL     time.Duration `mapstructure:"PUBLIC_KEY_TTL"`

	XPMultiplierMeditation float64 `mapstructure:"XP_MULTIPLIER_MEDITATION"`
	XPMultiplierBreathwork float64 `mapstructure:"XP_MULTIPLIER_BREATHWORK"`
	XPMultiplierFocus      float64 `mapstructure:"XP_MULTIPLIER_FOCUS"`
	XPMultiplierGratitude  float64 `mapstructure:"XP_MULTIPLIER_GRATITUDE"`
	XPMultiplierCalm       float64 `mapstructure:"XP_MULTIPLIER_CALM"`
}

var defaults = map[string]interface{}{
	"HTTP_PORT":                ":8080",
	"GRPC_PORT":                ":9090",
	"ALLOWED_ORIGINS":          "http://localhost:3000",
	"LOG_LEVEL":                "info",
	"DB_HOST":                  "localhost",
	"DB_PORT":                  "5432",
	"DB_NAME":                  "zengarden",
	"REDIS_ADDR":               "localhost:6379",
	"HEDERA_NETWORK":           "testnet",
	"IPFS_API_URL":             "http://localhost:5001",
	"IPFS_GATEWAY":             "https://ipfs.io/ipfs",
	"MIN_DURATION":             1,
	"MAX_DURATION":             120,
	"MIN_MINT_SESSIONS":        9,
	"RETRY_MAX_ATTEMPTS":       3,
	"MINT_LOCK_TTL":            "2m",
	"PUBLIC_KEY_TTL":           "10m",
	"XP_MULTIPLIER_MEDITATION": 1.5,
	"XP_MULTIPLIER_BREATHWORK": 1.3,
	"XP_MULTIPLIER_FOCUS":      1.2,
	"XP_MULTIPLIER_GRATITUDE":  1.1,
	"XP_MULTIPLIER_CALM":       1.0,
}

func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.AutomaticEnv()

	// Явно биндим всё, иначе Unmarshal не увидит переменные без файла
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range []string{
		"DB_USER", "DB_PASSWORD",
		"HEDERA_OPERATOR_ID", "HEDERA_OPERATOR_KEY", "HEDERA_NFT_TOKEN_ID", "HEDERA_HCS_TOPIC_ID",
		"IPFS_API_TOKEN",
	} {
		v.BindEnv(key)
	}

	err = v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
	}

	err = v.Unmarshal(&config)
	return
}

func (c Config) DSN() string {
	return "host=" + c.DBHost + " user=" + c.DBUser + " password=" + c.DBPassword +
		" dbname=" + c.DBName + " port=" + c.DBPort + " sslmode=disable"
}

func (c Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
