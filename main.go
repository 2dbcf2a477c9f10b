package main

import (
	"log"

	"app-groups-sync/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
