package main

//go:generate swag init -g cmd/orchestrator/main.go -o docs

// @title           Venture Orchestrator API
// @version         0.1.0
// @description     Phase progression, deliverable review and autonomous trading controls.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
