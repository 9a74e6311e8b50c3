package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/absmach/dexgate/pkg/wire"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

const defGatewayURL = "ws://localhost:2112/"

var (
	errPartitionFormat = errors.New("partition must be written as <key>=<value>[,<value>...]")
	errNoPartitions    = errors.New("at least one partition is required")
)

// Partition is one state update sent by the probe.
type Partition struct {
	Name    string
	Index   int64
	Indexed bool
	Values  []float64
}

func (p Partition) frame(timestep float64) []byte {
	ps := wire.PartitionState{
		CumulativeTimesteps: timestep,
		State:               wire.State{Values: p.Values},
	}
	if p.Indexed {
		ps.PartitionIndex, ps.HasIndex = p.Index, true
	} else {
		ps.PartitionName = p.Name
	}

	return ps.Marshal()
}

// ParsePartition parses "left=1,2.5". When indexed is set the key is a
// partition index instead of a name.
func ParsePartition(arg string, indexed bool) (Partition, error) {
	key, raw, ok := strings.Cut(arg, "=")
	if !ok || key == "" {
		return Partition{}, fmt.Errorf("%w: %q", errPartitionFormat, arg)
	}

	p := Partition{Name: key, Indexed: indexed}
	if indexed {
		idx, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return Partition{}, fmt.Errorf("%w: index %q: %w", errPartitionFormat, key, err)
		}
		p.Index = idx
	}

	if raw == "" {
		return p, nil
	}
	for _, s := range strings.Split(raw, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Partition{}, fmt.Errorf("%w: value %q: %w", errPartitionFormat, s, err)
		}
		p.Values = append(p.Values, v)
	}

	return p, nil
}

// Probe plays the simulation side of one round. It sends every partition for
// timestep and waits for the gateway's action.
func Probe(ctx context.Context, url string, timestep float64, parts []Partition) ([]float64, error) {
	if len(parts) == 0 {
		return nil, errNoPartitions
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gateway: %w", err)
	}
	resp.Body.Close()
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	for _, p := range parts {
		if err := conn.WriteMessage(websocket.BinaryMessage, p.frame(timestep)); err != nil {
			return nil, fmt.Errorf("failed to send partition %s: %w", p.Name, err)
		}
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read action: %w", err)
	}

	var action wire.State
	if err := action.Unmarshal(data); err != nil {
		return nil, err
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))

	return action.Values, nil
}

type probeRes struct {
	Time   float64   `json:"time"`
	Action []float64 `json:"action"`
}

func NewProbeCmd() *cobra.Command {
	var (
		url      string
		timestep float64
		indexed  bool
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "probe <key>=<values> [<key>=<values>...]",
		Short: "Send one round of partitions",
		Long: `Connect to a gateway, send one round of partitions and print the returned action.
Values are comma separated, for example: probe left=1,2 right=3`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			parts := make([]Partition, 0, len(args))
			for _, arg := range args {
				p, err := ParsePartition(arg, indexed)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				parts = append(parts, p)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			action, err := Probe(ctx, url, timestep, parts)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, probeRes{Time: timestep, Action: action})
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", defGatewayURL, "Gateway WebSocket URL")
	cmd.Flags().Float64VarP(&timestep, "time", "t", 0, "Cumulative timesteps of the round")
	cmd.Flags().BoolVarP(&indexed, "indexed", "i", false, "Keys are partition indices")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Time to wait for the action")

	return cmd
}
