package main

import "github.com/example/readdaily/cmd"

func main() {
	cmd.Execute()
}
