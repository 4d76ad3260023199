package main

import "finance-brief/internal/cli"

func main() {
	cli.Execute()
}
