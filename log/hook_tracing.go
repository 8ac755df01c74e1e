package log

import (
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

// TracingHook adds the caller's package name to every event. With WithTrace
// (or at trace level) function, file and line are added too, which is slow.
type TracingHook struct {
	WithTrace bool
}

func NewTracingHook(withTrace bool) TracingHook {
	return TracingHook{WithTrace: withTrace}
}

func (h TracingHook) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	pc, _, _, ok := runtime.Caller(3)
	if !ok {
		return
	}

	frame := runtime.FuncForPC(pc)
	if frame == nil {
		return
	}
	callerName := frame.Name()

	// "github.com/x/y/pkg.(*Type).Method" -> "github.com/x/y/pkg"
	lastSlash := strings.LastIndex(callerName, "/")
	packageName := callerName
	if dot := strings.Index(callerName[lastSlash+1:], "."); dot >= 0 {
		packageName = callerName[:lastSlash+1+dot]
	}
	e.Str("package", packageName)

	if h.WithTrace || (zerolog.GlobalLevel() == zerolog.TraceLevel && level == zerolog.TraceLevel) {
		fileName, lineNo := frame.FileLine(pc)
		e.Str("function", strings.TrimPrefix(callerName, packageName+"."))
		e.Str("file", fileName)
		e.Int("line", lineNo)
	}
}
