package main

import "github.com/kozaktomas/doppelganger/cmd"

func main() {
	cmd.Execute()
}
