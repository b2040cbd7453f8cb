package main

import "github.com/kamusis/frum/cmd"

func main() {
	cmd.Execute()
}
