// Package main is the entry point for the knowledge base chatbot API.
package main

import (
	"github.com/joho/godotenv"
	_ "go.uber.org/automaxprocs"

	"github.com/kart-io/kb-chatbot/cmd/chatbot/app"
)

func main() {
	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	app.NewApp().Run()
}
