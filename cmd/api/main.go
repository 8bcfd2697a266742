package main

import "threadline/api/internal/cmd"

func main() {
	cmd.Run()
}
