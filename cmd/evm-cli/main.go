package main

import "evm-kit/cmd/evm-cli/cmd"

func main() {
	cmd.Execute()
}
