package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-g string   gRPC health bind address (e.g. ":50051")
//	-d string   PostgreSQL DSN, empty for the in-memory store
//	-s string   JWT HMAC secret key
//	-l string   log level
//	-v int      verification token validity, hours
//	-r int      password reset token validity, hours
//	-w int      session inactivity window, hours
//	-u string   frontend base URL used in email links
//	-m string   SMTP host, empty to log emails instead of sending
//	-k string   Redis address, empty to disable email throttling
//
// os.Args is filtered with flagx.FilterArgs first so flags owned by other
// components are ignored.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-s", "-l", "-v", "-r", "-w", "-u", "-m", "-k"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to serve HTTP")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to serve gRPC health")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	verificationTTL := fs.Int("v", int(config.VerificationTokenValidityDuration.Hours()), "verification token validity (in hours)")
	resetTTL := fs.Int("r", int(config.PasswordResetTokenValidityDuration.Hours()), "password reset token validity (in hours)")
	sessionWindow := fs.Int("w", int(config.SessionInactivityWindow.Hours()), "session inactivity window (in hours)")

	fs.StringVar(&config.FrontendURL, "u", config.FrontendURL, "frontend URL")
	fs.StringVar(&config.SMTPHost, "m", config.SMTPHost, "SMTP host")
	fs.StringVar(&config.RedisAddr, "k", config.RedisAddr, "Redis address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.VerificationTokenValidityDuration = time.Duration(*verificationTTL) * time.Hour
	config.PasswordResetTokenValidityDuration = time.Duration(*resetTTL) * time.Hour
	config.SessionInactivityWindow = time.Duration(*sessionWindow) * time.Hour
}
