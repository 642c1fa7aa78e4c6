package config

import (
	"os"

	"github.com/joho/godotenv"
)

// ClientConfig 客户端运行所需配置
type ClientConfig struct {
	APIURL string // REST 基地址
	WSURL  string // 推送通道地址
	Token  string // Bearer 凭证
}

// ServerConfig devserver 配置
type ServerConfig struct {
	DSN       string
	Port      string
	JWTSecret string
}

// LoadClient 读取 .env 和环境变量，缺省值用于本地 devserver
func LoadClient() ClientConfig {
	_ = godotenv.Load()
	return ClientConfig{
		APIURL: getenv("MENSAJERIA_API_URL", "http://localhost:8082/api"),
		WSURL:  getenv("MENSAJERIA_WS_URL", "ws://localhost:8082/ws"),
		Token:  os.Getenv("MENSAJERIA_TOKEN"),
	}
}

func LoadServer() ServerConfig {
	_ = godotenv.Load()
	return ServerConfig{
		DSN:       getenv("MYSQL_DSN", "root:root@tcp(127.0.0.1:3306)/mensajeria?charset=utf8mb4&parseTime=True&loc=Local"),
		Port:      getenv("PORT", "8082"),
		JWTSecret: getenv("JWT_SECRET", "dev-secret"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
