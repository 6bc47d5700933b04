// Command client connects to a collectiond server, sends one command as a
// framed Request, prints the Response, and exits. It exists to exercise
// internal/client/client end to end; a full line-editing REPL is out of
// scope.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/serezk4/collectiond/internal/client/client"
	"github.com/serezk4/collectiond/internal/client/config"
	"github.com/serezk4/collectiond/internal/logging"
	"github.com/serezk4/collectiond/internal/model"
)

func main() {
	username := flag.String("username", "", "account username")
	password := flag.String("password", "", "account password")
	command := flag.String("command", "help", "command to send")
	args := flag.String("args", "", "comma-separated command args")
	flag.Parse()

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	cfg := config.LoadConfig()

	c := client.New(cfg, log)

	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "connect:", err)
		os.Exit(1)
	}
	defer c.Close()

	var argv []string
	if *args != "" {
		argv = strings.Split(*args, ",")
	}

	resp, err := c.Send(ctx, model.Request{
		Command: *command,
		Args:    argv,
		Credentials: model.Credentials{
			Username: *username,
			Password: *password,
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "send:", err)
		os.Exit(1)
	}

	fmt.Println(resp.Message)
	for _, p := range resp.Persons {
		fmt.Printf("%+v\n", p)
	}
}
