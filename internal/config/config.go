package config

import (
	"fmt"
	"os"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	JWTSecret string // JWT署名シークレット

	GoEnv string // dev/prod
	FEURL string // フロントURL（CORSで使う）

	RabbitMQURL string // 空なら注文イベントは発行しない
}

// Loadは環境変数から読む。DB接続は infra/db が直接環境変数を見る。
func Load() (Config, error) {
	cfg := Config{
		Port:        os.Getenv("PORT"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		GoEnv:       os.Getenv("GO_ENV"),
		FEURL:       os.Getenv("FE_URL"),
		RabbitMQURL: os.Getenv("RABBITMQ_URL"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.GoEnv == "" {
		cfg.GoEnv = "dev"
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}
