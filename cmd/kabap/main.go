// Command kabap is the CLI surface for the Kabap engine (spec §6,
// "external collaborator"): run a script file, or save/load its
// tokenised .kat form.
package main

import (
	"os"

	"github.com/kabaplang/kabap-go/cmd/kabap/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
