package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	ProjectName string `env:"PROJECT_NAME" envDefault:"accounts-api"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	JWTSecret             string `env:"JWT_SECRET,required"`
	AccessTokenTTLMinutes int    `env:"ACCESS_TOKEN_TTL_MINUTES" envDefault:"2880"`
	ResetTokenTTLHours    int    `env:"RESET_TOKEN_TTL_HOURS" envDefault:"48"`

	ServerURL   string   `env:"SERVER_URL" envDefault:"http://localhost:8080"`
	FrontendURL string   `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	SupportEmail     string `env:"SUPPORT_EMAIL"`
	EmailFromName    string `env:"EMAIL_FROM_NAME"`
	EmailEndpointURL string `env:"EMAIL_ENDPOINT_URL"`
	EmailEndpointKey string `env:"EMAIL_ENDPOINT_KEY"`
	SMTPHost         string `env:"SMTP_HOST"`
	SMTPPort         int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser         string `env:"SMTP_USER"`
	SMTPPass         string `env:"SMTP_PASS"`
	SMTPFrom         string `env:"SMTP_FROM"`
	SMTPUseTLS       bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	GoogleClientID     string `env:"GOOGLE_AUTH_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_AUTH_CLIENT_SECRET"`

	MicrosoftClientID     string `env:"MICROSOFT_AUTH_CLIENT_ID"`
	MicrosoftClientSecret string `env:"MICROSOFT_AUTH_CLIENT_SECRET"`
	MicrosoftTenantID     string `env:"MICROSOFT_AUTH_TENANT_ID" envDefault:"common"`

	LinkedInClientID     string `env:"LINKEDIN_AUTH_CLIENT_ID"`
	LinkedInClientSecret string `env:"LINKEDIN_AUTH_CLIENT_SECRET"`

	OktaBaseURL      string `env:"OKTA_BASE_URL"`
	OktaClientID     string `env:"OKTA_AUTH_CLIENT_ID"`
	OktaClientSecret string `env:"OKTA_AUTH_CLIENT_SECRET"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
