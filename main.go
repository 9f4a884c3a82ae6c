package main

import "github.com/agentix/droidportal/cmd"

func main() {
	cmd.Execute()
}
