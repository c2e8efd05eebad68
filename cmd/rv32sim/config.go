package main

import (
	"github.com/urfave/cli/v2"
)

// ConfigOutFlag names the file the config command writes.
var ConfigOutFlag = &cli.PathFlag{
	Name:      "out",
	Usage:     "path to write the timing configuration to",
	Required:  true,
	TakesFile: true,
}

// WriteConfig writes the effective timing configuration, defaults plus any
// --timing-config file and flag overrides, as JSON.
func WriteConfig(ctx *cli.Context) error {
	config, err := timingConfig(ctx)
	if err != nil {
		return err
	}
	return config.SaveConfig(ctx.Path(ConfigOutFlag.Name))
}

// ConfigCommand writes the effective timing configuration.
var ConfigCommand = &cli.Command{
	Name:        "config",
	Usage:       "Write a timing configuration file",
	Description: "Write the default timing configuration, optionally merged with an existing file and flag overrides",
	Action:      WriteConfig,
	Flags: []cli.Flag{
		ConfigOutFlag,
		TimingConfigFlag,
		MaxCyclesFlag,
		BusFlag,
		DCacheFlag,
	},
}
