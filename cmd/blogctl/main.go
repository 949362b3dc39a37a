package main

import "github.com/geocoder89/blogapi/cmd/blogctl/commands"

func main() {
	commands.Execute()
}
