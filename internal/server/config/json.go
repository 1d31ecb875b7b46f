package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/flagx"
	"github.com/dmitrijs2005/rooftop/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept both
// strings such as "48h" and integer nanoseconds. Absent keys leave the
// current value untouched.
type JsonConfig struct {
	EndpointAddrHTTP string `json:"endpoint_addr_http"`
	EndpointAddrGRPC string `json:"endpoint_addr_grpc"`
	DatabaseDSN      string `json:"database_dsn"`
	SecretKey        string `json:"secret_key"`
	LogLevel         string `json:"log_level"`

	VerificationTokenValidityDuration  timex.Duration `json:"verification_token_validity_duration"`
	PasswordResetTokenValidityDuration timex.Duration `json:"password_reset_token_validity_duration"`
	OAuthStateValidityDuration         timex.Duration `json:"oauth_state_validity_duration"`
	SessionInactivityWindow            timex.Duration `json:"session_inactivity_window"`
	BcryptCost                         int            `json:"bcrypt_cost"`

	FrontendURL  string `json:"frontend_url"`
	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUser     string `json:"smtp_user"`
	SMTPPassword string `json:"smtp_password"`
	EmailSender  string `json:"email_sender"`

	RedisAddr           string         `json:"redis_addr"`
	RedisPassword       string         `json:"redis_password"`
	RedisDB             int            `json:"redis_db"`
	EmailThrottleLimit  int            `json:"email_throttle_limit"`
	EmailThrottleWindow timex.Duration `json:"email_throttle_window"`
	LoginRateLimit      float64        `json:"login_rate_limit"`

	GoogleClientID     string `json:"google_client_id"`
	GoogleClientSecret string `json:"google_client_secret"`
	GoogleCallbackURL  string `json:"google_callback_url"`
}

// parseJson overlays the file named by -c/-config onto config. Without the
// flag nothing is loaded. An unreadable or malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogLevel, c.LogLevel)

	setDuration(&config.VerificationTokenValidityDuration, c.VerificationTokenValidityDuration)
	setDuration(&config.PasswordResetTokenValidityDuration, c.PasswordResetTokenValidityDuration)
	setDuration(&config.OAuthStateValidityDuration, c.OAuthStateValidityDuration)
	setDuration(&config.SessionInactivityWindow, c.SessionInactivityWindow)
	setInt(&config.BcryptCost, c.BcryptCost)

	setString(&config.FrontendURL, c.FrontendURL)
	setString(&config.SMTPHost, c.SMTPHost)
	setInt(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.EmailSender, c.EmailSender)

	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setInt(&config.RedisDB, c.RedisDB)
	setInt(&config.EmailThrottleLimit, c.EmailThrottleLimit)
	setDuration(&config.EmailThrottleWindow, c.EmailThrottleWindow)
	if c.LoginRateLimit != 0 {
		config.LoginRateLimit = c.LoginRateLimit
	}

	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.GoogleClientSecret, c.GoogleClientSecret)
	setString(&config.GoogleCallbackURL, c.GoogleCallbackURL)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
