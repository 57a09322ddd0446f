// Command promptc compiles report prompts and maintains logic files offline.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "promptc:", err)
		os.Exit(1)
	}
}
