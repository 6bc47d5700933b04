// Command adduser provisions a new user in the persons/users database.
//
// Registration has no router command of its own — a connected client
// cannot create accounts for itself — so this is the operator-facing path
// onto credentials.Register.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/serezk4/collectiond/internal/logging"
	"github.com/serezk4/collectiond/internal/server/config"
	"github.com/serezk4/collectiond/internal/server/credentials"
	"github.com/serezk4/collectiond/internal/server/store"
)

func main() {
	username := flag.String("username", "", "username to create")
	password := flag.String("password", "", "plaintext password")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: adduser -username <name> -password <plaintext>")
		os.Exit(1)
	}

	log := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	cfg := config.LoadConfig()

	gw := store.Open(cfg.DSN())
	defer gw.Close()

	ctx := context.Background()
	if err := gw.Migrate(ctx); err != nil {
		log.Error(ctx, "migration failed", "err", err)
		os.Exit(1)
	}

	u, err := credentials.Register(ctx, gw, *username, *password)
	if err != nil {
		log.Error(ctx, "registration failed", "username", *username, "err", err)
		os.Exit(1)
	}

	fmt.Printf("created user %q with id %d\n", u.Username, u.ID)
}
