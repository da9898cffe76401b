package main

import "github.com/oshokin/access-terminal/cmd/terminal-monitor/cmd"

func main() {
	cmd.Execute()
}
