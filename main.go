package main

import "github.com/estesp/pplot/cmd"

func main() {
	cmd.Execute()
}
