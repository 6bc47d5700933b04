package config

import (
	"flag"
	"os"

	"github.com/serezk4/collectiond/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-port int          TCP port the connection manager listens on
//	-dbhost string     PostgreSQL host
//	-dbport int        PostgreSQL port
//	-dbname string     PostgreSQL database name
//	-dbuser string     PostgreSQL user
//	-dbpassword string PostgreSQL password
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-port", "-dbhost", "-dbport", "-dbname", "-dbuser", "-dbpassword"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.IntVar(&config.Port, "port", config.Port, "TCP port the connection manager listens on")
	fs.StringVar(&config.DBHost, "dbhost", config.DBHost, "PostgreSQL host")
	fs.IntVar(&config.DBPort, "dbport", config.DBPort, "PostgreSQL port")
	fs.StringVar(&config.DBName, "dbname", config.DBName, "PostgreSQL database name")
	fs.StringVar(&config.DBUser, "dbuser", config.DBUser, "PostgreSQL user")
	fs.StringVar(&config.DBPassword, "dbpassword", config.DBPassword, "PostgreSQL password")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
