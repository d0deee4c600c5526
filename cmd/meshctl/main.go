package main

import "github.com/dkeye/Mesh/internal/cli"

func main() {
	cli.Execute()
}
