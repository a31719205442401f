package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/lernia/lernia/cmd"
)

func main() {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
