package main

import (
	"log"

	"github.com/absmach/dexgate/cli"
	"github.com/absmach/dexgate/pkg/sdk"
	"github.com/spf13/cobra"
)

func main() {
	var gatewayURL string

	rootCmd := &cobra.Command{
		Use:   "dexgate-cli",
		Short: "Dexgate CLI",
		Long:  `Dexgate CLI runs the partition aggregation gateway and inspects running gateways.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				GatewayURL:      gatewayURL,
				TLSVerification: cli.DefTLSVerification,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetSDK(s)
		},
	}
	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway-url", cli.DefGatewayURL, "Gateway HTTP URL")

	rootCmd.AddCommand(cli.NewGatewayCmd())
	rootCmd.AddCommand(cli.NewProbeCmd())
	rootCmd.AddCommand(cli.NewSessionsCmd())
	rootCmd.AddCommand(cli.NewHealthCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
