package main

import (
	"fmt"
	"os"

	"github.com/gosubtrans/gosubtrans/internal/cli"
)

func main() {
	err := cli.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.ExitCode(err))
}
