package config

import (
	"flag"
	"os"
	"time"

	"github.com/serezk4/collectiond/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-host string        server host
//	-port int           server TCP port
//	-retries int         number of connect retries
//	-backoff int         backoff between connect retries, in seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-host", "-port", "-retries", "-backoff"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerHost, "host", cfg.ServerHost, "server host")
	fs.IntVar(&cfg.ServerPort, "port", cfg.ServerPort, "server TCP port")
	fs.IntVar(&cfg.ConnectRetries, "retries", cfg.ConnectRetries, "number of connect retries")
	backoffSec := fs.Int("backoff", int(cfg.ConnectBackoff.Seconds()), "backoff between connect retries, in seconds")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.ConnectBackoff = time.Duration(*backoffSec) * time.Second
}
