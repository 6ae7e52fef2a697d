// Command lexsy-cli fills a document template from the terminal using the
// same controllers as the web front-end.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
