package main

import (
	"duckwire/cmd/handlers"
	"duckwire/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
