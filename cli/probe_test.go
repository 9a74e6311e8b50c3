package cli_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/absmach/dexgate/cli"
	"github.com/absmach/dexgate/gateway"
	"github.com/absmach/dexgate/gateway/api"
	"github.com/absmach/dexgate/partition"
	"github.com/absmach/dexgate/pkg/sdk"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startGateway(t *testing.T, scheme partition.Scheme) (string, chan map[string][]float64) {
	t.Helper()

	calls := make(chan map[string][]float64, 4)
	taker := partition.ActionTakerFunc(func(_ context.Context, _ float64, states map[string][]float64) ([]float64, error) {
		calls <- states

		return []float64{9.5, -1}, nil
	})

	svc, err := gateway.NewService(scheme, taker, false, nil, slog.Default())
	require.NoError(t, err)
	ln := api.NewListener(svc, api.Config{MaxFrameSize: 1 << 20, CloseOnError: true}, slog.Default())
	srv := httptest.NewServer(api.MakeHandler(svc, ln, slog.Default(), "probe-test"))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/", calls
}

func TestParsePartition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc    string
		arg     string
		indexed bool
		part    cli.Partition
		err     bool
	}{
		{desc: "named", arg: "left=1,2.5", part: cli.Partition{Name: "left", Values: []float64{1, 2.5}}},
		{desc: "spaces", arg: "left=1, 2", part: cli.Partition{Name: "left", Values: []float64{1, 2}}},
		{desc: "no values", arg: "left=", part: cli.Partition{Name: "left"}},
		{desc: "indexed", arg: "1=3", indexed: true, part: cli.Partition{Name: "1", Index: 1, Indexed: true, Values: []float64{3}}},
		{desc: "missing separator", arg: "left", err: true},
		{desc: "missing key", arg: "=1", err: true},
		{desc: "bad value", arg: "left=x", err: true},
		{desc: "bad index", arg: "left=1", indexed: true, err: true},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			p, err := cli.ParsePartition(tc.arg, tc.indexed)
			if tc.err {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.part, p)
		})
	}
}

func TestProbe(t *testing.T) {
	t.Parallel()

	scheme, err := partition.NewDirectScheme(2)
	require.NoError(t, err)
	url, calls := startGateway(t, scheme)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	action, err := cli.Probe(ctx, url, 1, []cli.Partition{
		{Name: "a", Values: []float64{1, 2}},
		{Name: "b", Values: []float64{3}},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{9.5, -1}, action)
	assert.Equal(t, map[string][]float64{"a": {1, 2}, "b": {3}}, <-calls)
}

func TestProbeIndexed(t *testing.T) {
	t.Parallel()

	scheme, err := partition.NewIndexedScheme(map[int64]string{0: "left", 1: "right"})
	require.NoError(t, err)
	url, calls := startGateway(t, scheme)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = cli.Probe(ctx, url, 0, []cli.Partition{
		{Index: 1, Indexed: true, Values: []float64{2}},
		{Index: 0, Indexed: true, Values: []float64{1}},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string][]float64{"left": {1}, "right": {2}}, <-calls)
}

func TestProbeErrors(t *testing.T) {
	t.Parallel()

	scheme, err := partition.NewDirectScheme(2)
	require.NoError(t, err)
	url, _ := startGateway(t, scheme)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = cli.Probe(ctx, url, 0, nil)
	assert.Error(t, err, "probe without partitions")

	_, err = cli.Probe(ctx, url, 0, []cli.Partition{{Name: "a"}, {Indexed: true, Index: 4}})
	assert.Error(t, err, "gateway closes the connection on an unknown partition")

	_, err = cli.Probe(ctx, "ws://127.0.0.1:1/", 0, []cli.Partition{{Name: "a"}})
	assert.Error(t, err, "unreachable gateway")
}

func TestProbeCmd(t *testing.T) {
	t.Parallel()

	scheme, err := partition.NewDirectScheme(2)
	require.NoError(t, err)
	url, _ := startGateway(t, scheme)

	var out, errOut bytes.Buffer
	cmd := cli.NewProbeCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--url", url, "--time", "2", "a=1,2", "b=3"})

	require.NoError(t, cmd.Execute())
	assert.Empty(t, errOut.String())
	assert.Contains(t, out.String(), "action")
	assert.Contains(t, out.String(), "9.5")
}

func TestSessionsAndHealthCmd(t *testing.T) {
	scheme, err := partition.NewDirectScheme(2)
	require.NoError(t, err)
	url, _ := startGateway(t, scheme)
	cli.SetSDK(sdk.NewSDK(sdk.Config{GatewayURL: "http" + strings.TrimSuffix(strings.TrimPrefix(url, "ws"), "/")}))

	cases := []struct {
		desc string
		cmd  *cobra.Command
		want string
	}{
		{desc: "sessions", cmd: cli.NewSessionsCmd(), want: "total"},
		{desc: "health", cmd: cli.NewHealthCmd(), want: "probe-test"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			var out, errOut bytes.Buffer
			tc.cmd.SetOut(&out)
			tc.cmd.SetErr(&errOut)
			tc.cmd.SetArgs([]string{})

			require.NoError(t, tc.cmd.Execute())
			assert.Empty(t, errOut.String())
			assert.Contains(t, out.String(), tc.want)
		})
	}
}
