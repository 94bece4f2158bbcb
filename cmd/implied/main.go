// Command implied derives the comparison predicates implied by a set of
// ordering relations.
package main

import (
	"os"

	"github.com/roach88/implied/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
