package config

import (
	"flag"
	"io"
	"os"
	"slices"
	"time"

	"github.com/dmitrijs2005/credcore/internal/flagx"
	"github.com/dmitrijs2005/credcore/internal/timex"
)

var serverFlags = []string{"-a", "-g", "-d", "-s", "-t", "-r", "-o", "-m", "-l"}

// parseFlags overlays the short command-line flags:
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-g string   gRPC bind address (e.g. ":50051")
//	-d string   PostgreSQL DSN
//	-s string   token signing secret
//	-t int      access token TTL, minutes
//	-r int      refresh token TTL, days
//	-o string   OTP sender channel (email|twilio|sns|log)
//	-m string   registration mode (password|otp)
//	-l string   log level
//
// Only these flags are picked out of os.Args, so -c and -env-file do not clash.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "signing secret")

	accessMinutes := fs.Int("t", int(config.AccessTokenTTL.Minutes()), "access token TTL (minutes)")
	refreshDays := fs.Int("r", int(config.RefreshTokenTTL.Hours()/24), "refresh token TTL (days)")

	fs.StringVar(&config.OTPSender, "o", config.OTPSender, "OTP sender channel")
	fs.StringVar(&config.RegistrationMode, "m", config.RegistrationMode, "registration mode")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Only touch TTLs that were given, so sub-minute or sub-day values from
	// earlier layers survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenTTL = time.Duration(*accessMinutes) * time.Minute
		case "r":
			config.RefreshTokenTTL = timex.Days(*refreshDays)
		}
	})

	return nil
}

// OwnedFlags lists every flag LoadConfig consumes, so tools sharing os.Args
// can strip them before parsing their own.
func OwnedFlags() []string {
	return append(slices.Clone(serverFlags), "-c", "-config", "-env-file")
}
