// Command zikauth serves the zikauth HTTP API and ships small operator helpers.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
