package main

import (
	"log"

	"bifrost/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("bifrost failed to start: %v", err)
	}
}
