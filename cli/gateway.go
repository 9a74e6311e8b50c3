package cli

import (
	"context"

	"github.com/absmach/dexgate"
	"github.com/absmach/dexgate/dexgated"
	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
)

var (
	logLevel       string
	host           string
	port           string
	partitionsFile string
	sharedRound    bool
)

var gatewayCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start gateway",
		Long:  `Start the gateway. Flags override the GATEWAY_ environment variables.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg, err := dexgate.LoadConfig(env.Options{Prefix: dexgate.EnvPrefix})
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			flags := cmd.Flags()
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("host") {
				cfg.Server.Host = host
			}
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			if flags.Changed("partitions-file") {
				cfg.Partitions.File = partitionsFile
			}
			if flags.Changed("shared-round") {
				cfg.SharedRound = sharedRound
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			if err := dexgated.StartGateway(ctx, cancel, cfg); err != nil {
				logErrorCmd(*cmd, err)
			}
			cancel()
		},
	},
}

func NewGatewayCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "gateway [start]",
		Short: "Gateway management",
		Long:  `Run the partition aggregation gateway.`,
	}

	for i := range gatewayCmd {
		cmd.AddCommand(&gatewayCmd[i])
	}

	start := &gatewayCmd[0]
	start.Flags().StringVarP(&logLevel, "log-level", "l", "info", "Log level")
	start.Flags().StringVar(&host, "host", "localhost", "Address the gateway listens on")
	start.Flags().StringVarP(&port, "port", "p", "2112", "Port the gateway listens on")
	start.Flags().StringVarP(&partitionsFile, "partitions-file", "f", "", "TOML file describing the partitions of a round")
	start.Flags().BoolVar(&sharedRound, "shared-round", false, "Aggregate one round across all connections")

	return &cmd
}
