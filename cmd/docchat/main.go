package main

import (
	"github.com/joho/godotenv"

	"github.com/diogo/docchat/internal/commands"
)

func main() {
	// A .env in the working directory may carry DOCCHAT_* settings.
	_ = godotenv.Load()

	commands.Execute()
}
