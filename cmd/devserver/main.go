package main

import (
	"log"

	"mensajeria/config"
	"mensajeria/devserver"
)

func main() {
	cfg := config.LoadServer()

	devserver.SetJWTSecret(cfg.JWTSecret)
	devserver.InitDB(cfg.DSN)
	devserver.Migrate()

	go devserver.GetHub().Run()

	r := devserver.RegisterRoutes()
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
