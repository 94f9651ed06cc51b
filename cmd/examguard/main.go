// examguard monitors an exam session for focus loss, fullscreen exits,
// blocked shortcuts and idleness, and ends it after repeated violations.
package main

import "github.com/ppiankov/examguard/internal/cli"

func main() {
	cli.Execute()
}
