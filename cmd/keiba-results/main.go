package main

import "github.com/pfrederiksen/keiba-results/internal/cli"

func main() {
	cli.Execute()
}
