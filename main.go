package main

import (
	"fmt"
	"os"

	"github.com/df07/go-pathtracer/cmd"
	"github.com/joho/godotenv"
)

func main() {
	// Settings in .env become defaults for flags with an EnvVar
	_ = godotenv.Load()

	if err := cmd.NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
