package main

import (
	"drivemirror/cmd"
	"os"
)

func main() {
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}
	cmd.Execute()
}
