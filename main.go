package main

import "github.com/leeineian/jukebox/cmd"

func main() {
	cmd.Execute()
}
