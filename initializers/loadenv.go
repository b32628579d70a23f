package initializers

import (
	"log"

	"github.com/joho/godotenv"
)

// LoadEnvVariables loads .env when present; in deployment the environment
// is set directly.
func LoadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on the environment")
	}
}
