package main

import "github.com/specloom/specloom/cmd"

func main() {
	cmd.Execute()
}
