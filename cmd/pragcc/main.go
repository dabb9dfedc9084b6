// Command pragcc annotates C99 sources with OpenMP or OpenACC directives.
package main

import "os"

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
