package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/flagx"
	"github.com/joho/godotenv"
)

const envPrefix = "ROOFTOP_"

// parseEnv overlays ROOFTOP_* environment variables onto config.
//
// A dotenv file is loaded first: the one named by -f/-envfile, otherwise
// ./.env when it exists. Variables already present in the process
// environment win over the file. Malformed numbers or durations panic.
func parseEnv(config *Config) {
	loadDotenv()

	envString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	envString(&config.EndpointAddrGRPC, "GRPC_ADDR")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.SecretKey, "JWT_SECRET")
	envString(&config.LogLevel, "LOG_LEVEL")

	envDuration(&config.VerificationTokenValidityDuration, "VERIFICATION_TOKEN_TTL")
	envDuration(&config.PasswordResetTokenValidityDuration, "PASSWORD_RESET_TOKEN_TTL")
	envDuration(&config.OAuthStateValidityDuration, "OAUTH_STATE_TTL")
	envDuration(&config.SessionInactivityWindow, "SESSION_INACTIVITY_WINDOW")
	envInt(&config.BcryptCost, "BCRYPT_COST")

	envString(&config.FrontendURL, "FE_URL")
	envString(&config.SMTPHost, "SMTP_HOST")
	envInt(&config.SMTPPort, "SMTP_PORT")
	envString(&config.SMTPUser, "EMAIL")
	envString(&config.SMTPPassword, "EMAIL_PASS")
	envString(&config.EmailSender, "EMAIL_SENDER")

	envString(&config.RedisAddr, "REDIS_ADDR")
	envString(&config.RedisPassword, "REDIS_PASSWORD")
	envInt(&config.RedisDB, "REDIS_DB")
	envInt(&config.EmailThrottleLimit, "EMAIL_THROTTLE_LIMIT")
	envDuration(&config.EmailThrottleWindow, "EMAIL_THROTTLE_WINDOW")
	if v, ok := os.LookupEnv(envPrefix + "LOGIN_RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			panic(err)
		}
		config.LoginRateLimit = f
	}

	envString(&config.GoogleClientID, "GOOGLE_CLIENT_ID")
	envString(&config.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")
	envString(&config.GoogleCallbackURL, "GOOGLE_CB_URL")
}

func loadDotenv() {
	if file := flagx.EnvFileFlags(); file != "" {
		if err := godotenv.Load(file); err != nil {
			panic(err)
		}
		return
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = n
}

func envDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
