package main

import "github.com/shiggsy365/bookstack/cmd"

func main() {
	cmd.Execute()
}
