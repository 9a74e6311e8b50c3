package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

const (
	allocFunction  = "alloc"
	freeFunction   = "free"
	actionFunction = "take_next_action"
)

var (
	errMissingExport = errors.New("wasm module is missing a required export")
	errMemoryAccess  = errors.New("wasm memory access out of range")
)

// WasmTaker runs a decision policy compiled to WebAssembly.
//
// The module must export memory, alloc(size i32) i32 and
// take_next_action(time f64, ptr i32, len i32) i64. The states of a round are
// written as a JSON object into memory obtained from alloc; the result packs
// the pointer of a JSON array of floats in its high 32 bits and its length in
// the low 32 bits. An optional free(ptr i32, len i32) export is called for
// both buffers.
type WasmTaker struct {
	mu      sync.Mutex
	runtime wazero.Runtime
	module  api.Module
	alloc   api.Function
	free    api.Function
	act     api.Function
}

func NewWasm(ctx context.Context, wasmBinary []byte) (*WasmTaker, error) {
	r := wazero.NewRuntime(ctx)

	// Instantiate WASI, which implements host functions needed for TinyGo to
	// implement `panic`.
	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	module, err := r.InstantiateWithConfig(ctx, wasmBinary, wazero.NewModuleConfig().WithStartFunctions("_initialize"))
	if err != nil {
		return nil, errors.Join(errors.New("failed to instantiate Wasm module"), err, r.Close(ctx))
	}

	w := &WasmTaker{
		runtime: r,
		module:  module,
		alloc:   module.ExportedFunction(allocFunction),
		free:    module.ExportedFunction(freeFunction),
		act:     module.ExportedFunction(actionFunction),
	}

	switch {
	case w.alloc == nil:
		return nil, errors.Join(fmt.Errorf("%w: %s", errMissingExport, allocFunction), r.Close(ctx))
	case w.act == nil:
		return nil, errors.Join(fmt.Errorf("%w: %s", errMissingExport, actionFunction), r.Close(ctx))
	case module.Memory() == nil:
		return nil, errors.Join(fmt.Errorf("%w: memory", errMissingExport), r.Close(ctx))
	}

	return w, nil
}

func (w *WasmTaker) TakeNextAction(ctx context.Context, time float64, states map[string][]float64) ([]float64, error) {
	input, err := json.Marshal(states)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal round: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	res, err := w.alloc.Call(ctx, api.EncodeU32(uint32(len(input))))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate guest memory: %w", err)
	}
	inPtr := api.DecodeU32(res[0])
	defer w.release(ctx, inPtr, uint32(len(input)))

	mem := w.module.Memory()
	if !mem.Write(inPtr, input) {
		return nil, errMemoryAccess
	}

	res, err = w.act.Call(ctx, api.EncodeF64(time), api.EncodeU32(inPtr), api.EncodeU32(uint32(len(input))))
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", actionFunction, err)
	}
	outPtr, outLen := uint32(res[0]>>32), uint32(res[0])
	defer w.release(ctx, outPtr, outLen)

	output, ok := mem.Read(outPtr, outLen)
	if !ok {
		return nil, errMemoryAccess
	}

	var action []float64
	if err := json.Unmarshal(output, &action); err != nil {
		return nil, fmt.Errorf("failed to decode action: %w", err)
	}

	return action, nil
}

func (w *WasmTaker) release(ctx context.Context, ptr, size uint32) {
	if w.free == nil || size == 0 {
		return
	}
	_, _ = w.free.Call(ctx, api.EncodeU32(ptr), api.EncodeU32(size))
}

func (w *WasmTaker) Close(ctx context.Context) error {
	return w.runtime.Close(ctx)
}
