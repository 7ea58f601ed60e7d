package main

import (
	"go.wisp.dev/wisp/cmd"
)

func main() {
	cmd.Execute()
}
