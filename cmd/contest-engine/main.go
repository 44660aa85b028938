package main

import "github.com/terra-clan/contest-engine/cmd/contest-engine/cmd"

func main() {
	cmd.Execute()
}
