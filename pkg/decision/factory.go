package decision

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/absmach/dexgate/partition"
)

type Config struct {
	Kind       string        `env:"DECISION"             envDefault:"zero"`
	URL        string        `env:"DECISION_URL"         envDefault:""`
	WasmFile   string        `env:"DECISION_WASM_FILE"   envDefault:""`
	ActionSize int           `env:"DECISION_ACTION_SIZE" envDefault:"1"`
	Timeout    time.Duration `env:"DECISION_TIMEOUT"     envDefault:"0s"`
}

// New builds the decision function described by cfg. The returned close
// function releases the resources held by the decision function.
func New(ctx context.Context, cfg Config) (partition.ActionTaker, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	var (
		taker   partition.ActionTaker
		closeFn = noop
		err     error
	)
	switch cfg.Kind {
	case KindZero, "":
		taker, err = Zero(cfg.ActionSize)
	case KindHTTP:
		taker, err = NewHTTP(cfg.URL, nil)
	case KindWasm:
		var bin []byte
		bin, err = os.ReadFile(cfg.WasmFile)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to read wasm decision file: %w", err)
		}
		var w *WasmTaker
		w, err = NewWasm(ctx, bin)
		if err == nil {
			taker, closeFn = w, w.Close
		}
	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
	if err != nil {
		return nil, noop, err
	}

	return WithTimeout(taker, cfg.Timeout), closeFn, nil
}
