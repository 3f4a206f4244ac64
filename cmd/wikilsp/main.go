// Command wikilsp runs the Markdown-wiki Language Server.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/wikilsp/wikilsp/cmd/wikilsp/cmd"
)

func main() {
	log.SetPrefix("wikilsp: ")
	log.SetFlags(0)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
