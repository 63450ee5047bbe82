package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/robmartinson/lite2pg/internal/config"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// a .env next to the binary may carry LITE2PG_* settings; absence is fine
	_ = godotenv.Load()

	if err := config.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
