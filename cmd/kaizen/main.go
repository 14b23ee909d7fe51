package main

import "github.com/kaizen-tdl/kaizen/cmd/kaizen/commands"

func main() {
	commands.Execute()
}
