package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `long:"config" short:"c" default:"rover.yml" description:"Configuration file"`

	Drive   DriveCommand   `command:"drive" description:"Open the operator console"`
	Setup   SetupCommand   `command:"setup" description:"Choose a rover link and find the tilt servo"`
	Exports ExportsCommand `command:"exports" description:"List saved weight exports"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Rover - operator console for a tracked rover with an onboard network"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
