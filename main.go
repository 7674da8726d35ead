package main

import "github.com/fakeyudi/elizabet/cmd"

func main() {
	cmd.Execute()
}
