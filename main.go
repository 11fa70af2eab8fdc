/*
Copyright © 2025 metislabs
*/
package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/metislabs/rag-be/cmd"
)

func main() {
	cmd.Execute()
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded:", err)
	}
}
