package main

import "github.com/tesh254/tracklist/cmd"

func main() {
	cmd.Execute()
}
