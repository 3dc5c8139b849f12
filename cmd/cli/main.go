package main

import "whatsapp-ranking/internal/cli"

func main() {
	cli.Execute()
}
