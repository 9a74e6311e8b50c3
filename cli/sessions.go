package cli

import (
	"github.com/absmach/dexgate/pkg/sdk"
	"github.com/spf13/cobra"
)

var (
	DefTLSVerification = false
	DefGatewayURL      = "http://localhost:2112"
)

var gsdk sdk.SDK

func SetSDK(s sdk.SDK) {
	gsdk = s
}

func NewSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List open sessions",
		Long:  `List the simulation connections open on the gateway.`,
		Run: func(cmd *cobra.Command, _ []string) {
			page, err := gsdk.ListSessions()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}
}

func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Gateway health",
		Long:  `Show the gateway status and instance id.`,
		Run: func(cmd *cobra.Command, _ []string) {
			h, err := gsdk.Health()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, h)
		},
	}
}
