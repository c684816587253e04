package config

import (
	"log"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string `env:"SERVER_ADDR" env-default:":5001"`
	APIPrefix  string `env:"API_PREFIX" env-default:"/api"`

	DBHost     string `env:"DB_HOST" env-default:"localhost"`
	DBPort     string `env:"DB_PORT" env-default:"5432"`
	DBUser     string `env:"DB_USER" env-default:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" env-default:"warranty"`

	JWTSecret        string        `env:"JWT_SECRET"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET"`
	AccessTokenTTL   time.Duration `env:"JWT_ACCESS_TTL" env-default:"15m"`
	RefreshTokenTTL  time.Duration `env:"JWT_REFRESH_TTL" env-default:"24h"`
	ResetTokenTTL    time.Duration `env:"RESET_TOKEN_TTL" env-default:"15m"`

	MindeeAPIKey string        `env:"MINDEE_API_KEY"`
	MindeeURL    string        `env:"MINDEE_URL" env-default:"https://api.mindee.net/v1/products/mindee/invoices/v4/predict"`
	OCRTimeout   time.Duration `env:"OCR_TIMEOUT" env-default:"30s"`

	AllowedOrigins string `env:"ALLOWED_ORIGINS" env-default:"http://localhost:5173,http://localhost:8081"`
	CookieSecure   bool   `env:"COOKIE_SECURE" env-default:"true"`

	UploadDir     string `env:"UPLOAD_DIR" env-default:"./uploads"`
	UseS3         bool   `env:"USE_S3" env-default:"false"`
	S3Bucket      string `env:"S3_BUCKET"`
	S3Region      string `env:"S3_REGION"`
	CloudFrontURL string `env:"CLOUDFRONT_URL"`

	AuthRateLimit   int `env:"AUTH_RATE_LIMIT" env-default:"20"`
	SignInRateLimit int `env:"SIGNIN_RATE_LIMIT" env-default:"5"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	RabbitMQURL string `env:"RABBITMQ_URL"`

	AdminUsername string `env:"ADMIN_USERNAME" env-default:"admin"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

func Load() *Config {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("❌ Failed to read config: %v", err)
	}

	log.Println("✅ Config loaded")
	return &cfg
}

// Origins splits ALLOWED_ORIGINS into the form fiber's cors middleware expects.
func (c *Config) Origins() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
