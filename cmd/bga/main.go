package main

import "bga/internal/cli"

func main() {
	cli.Execute()
}
