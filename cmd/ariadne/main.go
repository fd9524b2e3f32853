package main

import "github.com/mvp-joe/ariadne/internal/cli"

func main() {
	cli.Execute()
}
