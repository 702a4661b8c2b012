package main

import "github.com/tosih/ecu-tuner/cmd"

func main() {
	cmd.Execute()
}
