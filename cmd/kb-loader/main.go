// Package main is the entry point for the knowledge base loader.
package main

import (
	"github.com/joho/godotenv"
	_ "go.uber.org/automaxprocs"

	"github.com/kart-io/kb-chatbot/cmd/kb-loader/app"
)

func main() {
	_ = godotenv.Load()

	app.NewApp().Run()
}
