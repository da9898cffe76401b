package main

import "github.com/oshokin/access-terminal/cmd/access-terminal/cmd"

func main() {
	cmd.Execute()
}
