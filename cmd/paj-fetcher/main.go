// Command paj-fetcher downloads and converts the statistics published
// by the Petroleum Association of Japan.
package main

import "github.com/dbnomics-fetchers/paj-fetcher/commands"

func main() {
	commands.Execute()
}
