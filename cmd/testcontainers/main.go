package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/localnerve/gamestore/internal/testutil/containers"
)

func main() {
	var showHelp, dbOnly bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	flag.BoolVar(&dbOnly, "db", false, "start the database only")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	usage := `
Run the gamestore testcontainers with the environment variables from the .env file.

Usage:

testcontainers [-h] [-db] [-f ENV_FILE_PATH]

-db:           start the database container only
ENV_FILE_PATH: path to the .env file

example
  testcontainers -f /path/to/something/.env
`
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Infof("Loading environment variables from %s", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	} else {
		log.Info("No environment file specified, using current environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	env := containers.EnvFromOS()
	var (
		stack *containers.Stack
		err   error
	)
	if dbOnly {
		stack, err = containers.StartDatabase(ctx, nil, env)
	} else {
		stack, err = containers.StartAll(ctx, nil, env)
	}
	if err != nil {
		log.Errorf("Failed to create test containers: %v", err)
		os.Exit(1)
	}
	if host, port, err := stack.DBEndpoint(ctx); err == nil {
		fmt.Printf("DB_HOST=%s\nDB_PORT=%s\n", host, port)
	}

	<-ctx.Done()
	log.Info("Received signal, terminating test containers...")
	stack.Terminate(nil)
}
