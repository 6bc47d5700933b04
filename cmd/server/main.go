package main

import (
	"context"
	"log"
	"os"

	"github.com/serezk4/collectiond/internal/server"
	"github.com/serezk4/collectiond/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	app.Run(ctx)

}
