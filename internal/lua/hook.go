// Package lua runs the optional presence hook script.
//
// A script may define sensor_name(hostname, value) returning the name of the
// sensor to toggle. The "log" module is available through require("log").
package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// SensorNameFunc is the global function looked up in hook scripts
const SensorNameFunc = "sensor_name"

// Hook wraps a Lua state with a loaded script
type Hook struct {
	L    *lua.LState
	path string
}

// LoadHook executes the script at path and keeps its globals
func LoadHook(path string) (*Hook, error) {
	L := lua.NewState()
	L.PreloadModule("log", NewLogModule(path).Loader)

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to load script %s: %w", path, err)
	}

	return &Hook{L: L, path: path}, nil
}

// SensorName calls sensor_name(hostname, value).
// Returns "" when the script does not define it or returns nil.
func (h *Hook) SensorName(hostname string, value bool) (string, error) {
	fn := h.L.GetGlobal(SensorNameFunc)
	if fn.Type() != lua.LTFunction {
		return "", nil
	}

	err := h.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(hostname), lua.LBool(value))
	if err != nil {
		return "", fmt.Errorf("%s failed in %s: %w", SensorNameFunc, h.path, err)
	}

	ret := h.L.Get(-1)
	h.L.Pop(1)

	switch v := ret.(type) {
	case lua.LString:
		return string(v), nil
	case *lua.LNilType:
		return "", nil
	default:
		return "", fmt.Errorf("%s must return a string, got %s", SensorNameFunc, ret.Type())
	}
}

// Close closes the Lua state
func (h *Hook) Close() {
	h.L.Close()
}
