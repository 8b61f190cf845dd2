package main

import (
	"faceguard.io/infrastructure"
	"faceguard.io/infrastructure/env"
)

func init() {
	env.LoadEnv()
}

func main() {
	infrastructure.StartServer()
}
