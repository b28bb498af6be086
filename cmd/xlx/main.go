package main

import (
	"os"

	"github.com/Dev72112/xlamaexchange/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
