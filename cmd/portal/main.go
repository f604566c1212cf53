package main

import (
	"log"
	_ "time/tzdata" // market refresh schedule runs in Asia/Kolkata on minimal images

	"github.com/agriconnect/farmerportal/internal/portal/app"
)

func main() {
	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
