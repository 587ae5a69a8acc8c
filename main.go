package main

import "github.com/webposture/webposture/cmd"

// execCmd is indirected so tests can stub out command execution.
var execCmd = cmd.Execute

func main() {
	execCmd()
}
