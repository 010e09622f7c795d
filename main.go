package main

import "github.com/btc-embedded/smart-testing-genai/cmd"

func main() {
	cmd.Execute()
}
