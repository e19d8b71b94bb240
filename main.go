package main

import (
	"os"

	"github.com/poliacredita/qdigest/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
