package stage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lua "github.com/yuin/gopher-lua"
)

const (
	sandboxTimeoutViolation     = "sandbox timeout"
	sandboxInstructionViolation = "sandbox instruction limit"
	sandboxMemoryViolation      = "sandbox memory limit"
)

const (
	defaultLuaTimeoutMs        = 2000
	defaultLuaInstructionLimit = 1000000
	defaultLuaMemoryLimitBytes = 8388608
)

// LuaSandbox bounds the execution of folio extraction rules.
type LuaSandbox struct {
	TimeoutMs        int `json:"timeoutMs"`
	InstructionLimit int `json:"instructionLimit"`
	MemoryLimitBytes int `json:"memoryLimitBytes"`
}

// DefaultLuaSandbox returns the limits used when none are configured.
func DefaultLuaSandbox() LuaSandbox {
	return LuaSandbox{
		TimeoutMs:        defaultLuaTimeoutMs,
		InstructionLimit: defaultLuaInstructionLimit,
		MemoryLimitBytes: defaultLuaMemoryLimitBytes,
	}
}

func newSandboxLuaState(cfg LuaSandbox) *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:     true,
		RegistrySize:     256,
		RegistryMaxSize:  registryMaxFromMemory(cfg.MemoryLimitBytes),
		RegistryGrowStep: 0,
	})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.StringLibName, lua.OpenString},
		{lua.TabLibName, lua.OpenTable},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	// No file access from rules.
	for _, name := range []string{"dofile", "loadfile", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

func registryMaxFromMemory(memoryLimitBytes int) int {
	if memoryLimitBytes <= 0 {
		return 256
	}
	n := memoryLimitBytes / 64
	if n < 128 {
		n = 128
	}
	if n > 4096 {
		n = 4096
	}
	return n
}

// budgetContext wraps a context and closes Done once the VM has polled it
// more than limit times. The VM polls Done once per instruction.
type budgetContext struct {
	context.Context
	left      atomic.Int64
	exhausted chan struct{}
	once      sync.Once
}

var errInstructionBudget = errors.New(sandboxInstructionViolation)

func withInstructionBudget(parent context.Context, limit int) *budgetContext {
	c := &budgetContext{Context: parent, exhausted: make(chan struct{})}
	c.left.Store(int64(limit))
	return c
}

func (c *budgetContext) Done() <-chan struct{} {
	if c.left.Add(-1) < 0 {
		c.once.Do(func() { close(c.exhausted) })
		return c.exhausted
	}
	return c.Context.Done()
}

func (c *budgetContext) Err() error {
	select {
	case <-c.exhausted:
		return errInstructionBudget
	default:
		return c.Context.Err()
	}
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if err == context.DeadlineExceeded {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadline") || strings.Contains(msg, "context canceled")
}

// runLuaScript evaluates code with globals bound and returns its single
// result. A limit violation is reported as a violation string, not an error.
func runLuaScript(cfg LuaSandbox, globals map[string]any, code string) (any, string, error) {
	L := newSandboxLuaState(cfg)
	defer L.Close()

	ctx := context.Background()
	if cfg.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutMs)*time.Millisecond)
		defer cancel()
	}
	if cfg.InstructionLimit > 0 {
		ctx = withInstructionBudget(ctx, cfg.InstructionLimit)
	}
	if cfg.TimeoutMs > 0 || cfg.InstructionLimit > 0 {
		L.SetContext(ctx)
	}

	for k, v := range globals {
		L.SetGlobal(k, toLValue(L, v))
	}

	fn, err := loadRule(L, code)
	if err != nil {
		return nil, "", err
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		if strings.Contains(err.Error(), sandboxInstructionViolation) {
			return nil, sandboxInstructionViolation, nil
		}
		if isTimeoutError(err) {
			return nil, sandboxTimeoutViolation, nil
		}
		if strings.Contains(strings.ToLower(err.Error()), "registry overflow") {
			return nil, sandboxMemoryViolation, nil
		}
		return nil, "", err
	}
	ret := L.Get(-1)
	L.Pop(1)
	out := fromLValue(ret)
	if s, ok := out.(string); ok && cfg.MemoryLimitBytes > 0 && len(s) > cfg.MemoryLimitBytes {
		return nil, sandboxMemoryViolation, nil
	}
	return out, "", nil
}

// loadRule compiles code as an expression first and falls back to a chunk
// of statements.
func loadRule(L *lua.LState, code string) (*lua.LFunction, error) {
	if fn, err := L.LoadString("return (" + code + "\n)"); err == nil {
		return fn, nil
	}
	return L.LoadString(code)
}

// SandboxViolation reports a rule stopped by a sandbox limit.
type SandboxViolation string

func (v SandboxViolation) Error() string { return string(v) }

func luaViolation(field, violation string) error {
	return fmt.Errorf("rule for %s: %w", field, SandboxViolation(violation))
}

// toLValue converts a decoded record value to a Lua value.
func toLValue(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(x)
	case []byte:
		return lua.LString(string(x))
	case bool:
		if x {
			return lua.LTrue
		}
		return lua.LFalse
	case int:
		return lua.LNumber(float64(x))
	case int64:
		return lua.LNumber(float64(x))
	case float64:
		return lua.LNumber(x)
	case map[string]any:
		tbl := L.NewTable()
		for k, v2 := range x {
			tbl.RawSetString(k, toLValue(L, v2))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for i, v2 := range x {
			tbl.RawSetInt(i+1, toLValue(L, v2))
		}
		return tbl
	default:
		return lua.LNil
	}
}

func fromLValue(v lua.LValue) any {
	switch v.Type() {
	case lua.LTNil:
		return nil
	case lua.LTBool:
		return lua.LVAsBool(v)
	case lua.LTNumber:
		return float64(v.(lua.LNumber))
	case lua.LTString:
		return v.String()
	default:
		return v.String()
	}
}
