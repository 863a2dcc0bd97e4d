package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/agenthands/lorekeeper/internal/cli"
)

func main() {
	// .env is optional; real environment variables still apply
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
