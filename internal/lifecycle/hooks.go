package lifecycle

import (
	"reflect"
	"runtime"
	"strings"
)

// DefaultPriority places hooks after early bookkeeping (statistics logging)
// and before heavy teardown such as stopping task workers.
const DefaultPriority = 10

// Hook describes a named shutdown hook.
type Hook struct {
	Name     string
	Priority int
	Fn       func()
}

// HookInfo is a read-only view of a registered hook.
type HookInfo struct {
	Name     string
	Priority int
}

type hookEntry struct {
	name     string
	priority int
	run      func() error
}

// funcName derives a display name for fn, e.g. "app.logStatistics".
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "anonymous"
	}

	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "anonymous"
	}

	name := f.Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}

	return name
}
