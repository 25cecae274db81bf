package main

import (
	"os"

	"github.com/iliyamo/concert-calendar/cmd/concertctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
