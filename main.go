package main

import "github.com/exportkit/chatview/cmd"

func main() {
	cmd.Execute()
}
