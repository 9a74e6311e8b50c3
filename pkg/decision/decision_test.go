package decision_test

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/absmach/dexgate/partition"
	"github.com/absmach/dexgate/pkg/decision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constantPolicy exports memory, alloc returning 1024 and take_next_action
// returning the JSON array "[1.5]" stored at offset 2048.
const constantPolicy = "0061736d01000000010d0260017f017f60037c7f7f017e03030200010503010001072503066d656d6f7279020005616c6c6f6300001074616b655f6e6578745f616374696f6e00010a120205004180080b0a0042858080808080020b0b0c01004180100b055b312e355d"

// memoryOnly exports nothing but its memory.
const memoryOnly = "0061736d010000000503010001070a01066d656d6f72790200"

var states = map[string][]float64{"left": {1, 2}, "right": {3}}

func TestZero(t *testing.T) {
	t.Parallel()

	taker, err := decision.Zero(3)
	require.NoError(t, err)
	action, err := taker.TakeNextAction(context.Background(), 1, states)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, action)

	_, err = decision.Zero(-1)
	assert.ErrorIs(t, err, decision.ErrInvalidSize)
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()

	slow := partition.ActionTakerFunc(func(ctx context.Context, _ float64, _ map[string][]float64) ([]float64, error) {
		<-ctx.Done()

		return nil, ctx.Err()
	})
	_, err := decision.WithTimeout(slow, 10*time.Millisecond).TakeNextAction(context.Background(), 0, states)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	fast, err := decision.Zero(1)
	require.NoError(t, err)
	assert.Same(t, fast, decision.WithTimeout(fast, 0))

	action, err := decision.WithTimeout(fast, time.Second).TakeNextAction(context.Background(), 0, states)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, action)
}

func TestHTTP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc    string
		handler http.HandlerFunc
		action  []float64
		err     bool
	}{
		{
			desc: "policy answers",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Time   float64              `json:"time"`
					States map[string][]float64 `json:"states"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					w.WriteHeader(http.StatusBadRequest)

					return
				}
				sum := req.Time
				for _, values := range req.States {
					for _, v := range values {
						sum += v
					}
				}
				_ = json.NewEncoder(w).Encode(map[string]any{"action": []float64{sum}})
			},
			action: []float64{8},
		},
		{
			desc: "policy fails",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			err: true,
		},
		{
			desc: "policy returns garbage",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			err: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			taker, err := decision.NewHTTP(srv.URL, srv.Client())
			require.NoError(t, err)

			action, err := taker.TakeNextAction(context.Background(), 2, states)
			if tc.err {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.action, action)
		})
	}
}

func TestNewHTTPValidation(t *testing.T) {
	t.Parallel()

	_, err := decision.NewHTTP("", nil)
	assert.Error(t, err)
	_, err = decision.NewHTTP("not a url", nil)
	assert.Error(t, err)
	_, err = decision.NewHTTP("http://localhost:9000/act", nil)
	assert.NoError(t, err)
}

func TestWasm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bin, err := hex.DecodeString(constantPolicy)
	require.NoError(t, err)

	taker, err := decision.NewWasm(ctx, bin)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, taker.Close(ctx))
	}()

	for range 2 {
		action, err := taker.TakeNextAction(ctx, 1, states)
		require.NoError(t, err)
		assert.Equal(t, []float64{1.5}, action)
	}
}

func TestWasmInvalidModules(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	memOnly, err := hex.DecodeString(memoryOnly)
	require.NoError(t, err)

	cases := []struct {
		desc string
		bin  []byte
	}{
		{desc: "not wasm", bin: []byte("definitely not wasm")},
		{desc: "missing exports", bin: memOnly},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			_, err := decision.NewWasm(ctx, tc.bin)
			assert.Error(t, err)
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	bin, err := hex.DecodeString(constantPolicy)
	require.NoError(t, err)
	wasmFile := filepath.Join(dir, "policy.wasm")
	require.NoError(t, os.WriteFile(wasmFile, bin, 0o644))

	cases := []struct {
		desc   string
		cfg    decision.Config
		action []float64
		err    error
	}{
		{desc: "default zero", cfg: decision.Config{ActionSize: 2}, action: []float64{0, 0}},
		{desc: "zero with timeout", cfg: decision.Config{Kind: decision.KindZero, ActionSize: 1, Timeout: time.Second}, action: []float64{0}},
		{desc: "wasm", cfg: decision.Config{Kind: decision.KindWasm, WasmFile: wasmFile}, action: []float64{1.5}},
		{desc: "unknown kind", cfg: decision.Config{Kind: "oracle"}, err: decision.ErrUnknownKind},
		{desc: "negative size", cfg: decision.Config{Kind: decision.KindZero, ActionSize: -2}, err: decision.ErrInvalidSize},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			taker, closeFn, err := decision.New(ctx, tc.cfg)
			defer func() {
				assert.NoError(t, closeFn(ctx))
			}()
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)

			action, err := taker.TakeNextAction(ctx, 0, states)
			require.NoError(t, err)
			assert.Equal(t, tc.action, action)
		})
	}

	_, _, err = decision.New(ctx, decision.Config{Kind: decision.KindWasm, WasmFile: filepath.Join(dir, "missing.wasm")})
	assert.Error(t, err)
}
