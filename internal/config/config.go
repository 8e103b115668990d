// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// ストアの種類
const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

// release モードで要求する署名鍵の最小バイト数
const minReleaseSecretLen = 32

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port     string `env:"PORT" env-default:"8080"`      // APIサーバーのポート番号
	GinMode  string `env:"GIN_MODE" env-default:"debug"` // Ginの実行モード (debug, release, test)
	LogLevel string `env:"LOG_LEVEL" env-default:"info"` // slog のログレベル

	// CORS設定
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000"` // カンマ区切り

	// 画面配信（空の場合はプレースホルダーを返す）
	StaticDir string `env:"STATIC_DIR"`

	// 認証設定
	JWTSecret  string `env:"JWT_SECRET"`                   // セッショントークン署名用の秘密鍵（必須）
	BcryptCost int    `env:"BCRYPT_COST" env-default:"10"` // パスワードハッシュのコスト

	// ストア設定
	StoreDriver   string        `env:"STORE_DRIVER" env-default:"mongo"`
	MongoURI      string        `env:"MONGO_URI" env-default:"mongodb://127.0.0.1:27017"`
	MongoDatabase string        `env:"MONGO_DATABASE" env-default:"smart-todo"`
	StoreTimeout  time.Duration `env:"STORE_TIMEOUT" env-default:"5s"` // 1リクエストあたりのストア操作の上限

	// Redis設定（失効リストと分散レート制限。空の場合はプロセス内実装を使う）
	RedisURL       string `env:"REDIS_URL"`
	RateLimitRPS   int    `env:"RATE_LIMIT_RPS" env-default:"20"`
	RateLimitBurst int    `env:"RATE_LIMIT_BURST" env-default:"40"`

	// Kafka設定（監査イベント。ブローカー未指定なら送信しない）
	KafkaBrokers    []string `env:"KAFKA_BROKERS" env-separator:","`
	KafkaAuditTopic string   `env:"KAFKA_AUDIT_TOPIC" env-default:"auth-events"`
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// IsRelease は本番モードかどうかを返します。
func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}

// AllowedOrigins は CORS 許可オリジンを配列で返します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	// 署名鍵はモードに関係なく必須（固定値へのフォールバックはしない）
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	// 0 以下だとリミッターが全リクエストを拒否する
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %d", c.RateLimitRPS)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive, got %d", c.RateLimitBurst)
	}

	switch c.StoreDriver {
	case StoreDriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.IsRelease() {
		if len(c.JWTSecret) < minReleaseSecretLen {
			return fmt.Errorf("JWT_SECRET must be at least %d bytes in release mode", minReleaseSecretLen)
		}
		if c.StoreDriver == StoreDriverMemory {
			return fmt.Errorf("STORE_DRIVER=memory is not allowed in release mode")
		}
	}

	return nil
}
