package main

import "github.com/connectsphere/cli/cmd"

func main() {
	cmd.Execute()
}
