package main

//go:generate swag init -g cmd/santabot/main.go -o docs

// @title           Anime Santa Admin API
// @version         0.1.0
// @description     Read-only views of events and participants, plus a manual trigger for the daily sweeps.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
