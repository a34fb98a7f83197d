// Command newsharvest crawls one news site and writes article metadata.
package main

import (
	"fmt"
	"os"

	"github.com/aturner/newsharvest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
