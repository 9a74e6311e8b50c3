package main

import (
	"context"
	"log"
	"os"

	"github.com/absmach/dexgate"
	"github.com/absmach/dexgate/dexgated"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const pathEnv = ".env"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg, err := dexgate.LoadConfig(env.Options{Prefix: dexgate.EnvPrefix})
	if err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if err := dexgated.StartGateway(ctx, cancel, cfg); err != nil {
		log.Fatalf("gateway exited: %s", err.Error())
	}
}
