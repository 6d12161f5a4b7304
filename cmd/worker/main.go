package main

import (
	"os"

	"github.com/timmy/mealplan/internal/logger"
)

func main() {
	logger.SetDefaultLogger(logger.NewFromEnv(logger.LoadFromEnv()))
	defer logger.Sync()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
