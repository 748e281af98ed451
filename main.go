package main

import "mangascout/cmd"

func main() {
	cmd.Execute()
}
