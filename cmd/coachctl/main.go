// Command coachctl is a developer tool for the entitlement API: it mints local
// tokens, inspects decisions, records usage and seeds subscription events.
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
