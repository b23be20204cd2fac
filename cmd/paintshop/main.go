package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"paintshop/internal/logger"
)

func main() {
	// stdout carries reports and problem files
	logger.SetOutput(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if err := rootCmd.Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}
