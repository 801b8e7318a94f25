package main

import "github.com/jjenkins/publiccomment/cmd"

func main() {
	cmd.Execute()
}
