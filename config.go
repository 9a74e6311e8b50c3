package dexgate

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/absmach/dexgate/gateway/api"
	"github.com/absmach/dexgate/partition"
	"github.com/absmach/dexgate/pkg/decision"
	"github.com/absmach/dexgate/pkg/server"
	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml"
)

const EnvPrefix = "GATEWAY_"

type Config struct {
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`
	InstanceID  string `env:"INSTANCE_ID"  envDefault:""`
	SharedRound bool   `env:"SHARED_ROUND" envDefault:"false"`
	Partitions  PartitionConfig
	Decision    decision.Config
	Listener    api.Config
	Server      server.Config `envPrefix:"HTTP_"`
	MQTT        MQTTConfig    `envPrefix:"MQTT_"`
	OTELURL     url.URL       `env:"OTEL_URL"`
	TraceRatio  float64       `env:"TRACE_RATIO"  envDefault:"0"`
}

// MQTTConfig enables round notifications when Address is set.
type MQTTConfig struct {
	Address  string        `env:"ADDRESS"  envDefault:""`
	QoS      uint8         `env:"QOS"      envDefault:"1"`
	Timeout  time.Duration `env:"TIMEOUT"  envDefault:"30s"`
	Topic    string        `env:"TOPIC"    envDefault:"dexgate/rounds"`
	Username string        `env:"USERNAME" envDefault:""`
	Password string        `env:"PASSWORD" envDefault:""`
}

// PartitionConfig describes what makes a round complete. A partitions file
// takes precedence over names, and names over an expected count.
type PartitionConfig struct {
	Expected int               `env:"EXPECTED_PARTITIONS" envDefault:"1"`
	Names    map[string]string `env:"PARTITION_NAMES"     envSeparator:"," envKeyValSeparator:":"`
	File     string            `env:"PARTITIONS_FILE"     envDefault:""`
}

func LoadConfig(opts env.Options) (Config, error) {
	c := Config{}
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c PartitionConfig) Scheme() (partition.Scheme, error) {
	if c.File != "" {
		return LoadPartitions(c.File)
	}
	if len(c.Names) > 0 {
		names, err := parseNames(c.Names)
		if err != nil {
			return partition.Scheme{}, err
		}

		return partition.NewIndexedScheme(names)
	}

	return partition.NewDirectScheme(c.Expected)
}

type partitionsFile struct {
	Expected int `toml:"expected"`
}

// LoadPartitions reads a TOML partitions file. It holds either an expected
// count of named partitions:
//
//	expected = 3
//
// or a table of partition indices and their names:
//
//	[names]
//	0 = "left"
//	1 = "right"
func LoadPartitions(path string) (partition.Scheme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return partition.Scheme{}, fmt.Errorf("error reading partitions file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return partition.Scheme{}, fmt.Errorf("error parsing partitions file: %w", err)
	}

	if tree.Has("names") {
		table, ok := tree.Get("names").(*toml.Tree)
		if !ok {
			return partition.Scheme{}, fmt.Errorf("%w: names must be a table", partition.ErrConfiguration)
		}
		raw := make(map[string]string, len(table.Keys()))
		for k, v := range table.ToMap() {
			name, ok := v.(string)
			if !ok {
				return partition.Scheme{}, fmt.Errorf("%w: name of partition %s must be a string", partition.ErrConfiguration, k)
			}
			raw[k] = name
		}
		names, err := parseNames(raw)
		if err != nil {
			return partition.Scheme{}, err
		}

		return partition.NewIndexedScheme(names)
	}

	var pf partitionsFile
	if err := tree.Unmarshal(&pf); err != nil {
		return partition.Scheme{}, fmt.Errorf("error unmarshaling partitions file: %w", err)
	}

	return partition.NewDirectScheme(pf.Expected)
}

func parseNames(raw map[string]string) (map[int64]string, error) {
	names := make(map[int64]string, len(raw))
	var errs error
	for k, name := range raw {
		idx, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("%w: partition index %q is not an integer", partition.ErrConfiguration, k))

			continue
		}
		names[idx] = name
	}
	if errs != nil {
		return nil, errs
	}

	return names, nil
}
