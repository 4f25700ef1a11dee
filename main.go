package main

import "blueprint-library/cmd"

func main() {
	cmd.Execute()
}
