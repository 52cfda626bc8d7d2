// Command rentctl is the operator tool for the rentchain backend: schema
// migration, ledger audits, content pinning and test tokens.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
