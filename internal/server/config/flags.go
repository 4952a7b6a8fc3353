package config

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/paralympics/authapi/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     database DSN
//	-s string     token signing secret
//	-t duration   access token validity (e.g., "5m")
//	-b int        bcrypt cost
//	-l string     log level
//	-o string     comma-separated CORS origins
//	-r float      login attempts per second per client
//	-u int        login burst per client
//
// Arguments outside this set are filtered out with flagx.FilterArgs so
// other flag sets (such as -c) can share the command line.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-b", "-l", "-o", "-r", "-u"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing secret")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity")
	fs.IntVar(&config.BcryptCost, "b", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	origins := fs.String("o", strings.Join(config.CORSAllowedOrigins, ","), "comma-separated CORS allowed origins")
	fs.Float64Var(&config.LoginRateLimit, "r", config.LoginRateLimit, "login attempts per second per client")
	fs.IntVar(&config.LoginRateBurst, "u", config.LoginRateBurst, "login burst per client")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	config.CORSAllowedOrigins = splitList(*origins)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
