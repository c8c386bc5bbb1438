package main

import "github.com/packsync/packsync/internal/client/cli"

func main() {
	cli.Execute()
}
