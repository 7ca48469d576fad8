package main

import "github.com/netxfw/gunlog/cmd/gunlog/commands"

func main() {
	commands.Execute()
}
