package engine

import (
	"strings"

	"go.uber.org/zap"
)

// ConsoleEntry is one line written by guest console calls.
type ConsoleEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Console returns the lines guest code has logged so far.
func (in *Interpreter) Console() []ConsoleEntry {
	return append([]ConsoleEntry(nil), in.console...)
}

func (in *Interpreter) initConsole() {
	console := in.NewObject()
	in.SetGlobal("console", ObjectValue(console))
	log := in.log.Named("sandbox")
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		in.method(console, level, 0, func(in *Interpreter, c Call) (Value, error) {
			parts := make([]string, len(c.Args))
			for i, a := range c.Args {
				parts[i] = in.inspect(a)
			}
			msg := strings.Join(parts, " ")
			in.console = append(in.console, ConsoleEntry{Level: level, Message: msg})
			switch level {
			case "warn":
				log.Warn(msg)
			case "error":
				log.Error(msg)
			case "debug":
				log.Debug(msg)
			default:
				log.Info(msg, zap.String("level", level))
			}
			return Undefined(), nil
		})
	}
}

// inspect renders a value for console output: strings verbatim, plain
// objects and arrays as JSON, everything else through ToString.
func (in *Interpreter) inspect(v Value) string {
	if v.kind != KindObject || v.o.fn != nil || v.o.class == classError || v.o.internal != nil {
		return in.ToString(v)
	}
	w := jsonWriter{in: in, seen: map[*Object]bool{}}
	if ok, err := w.write(v, ""); err != nil || !ok {
		return in.ToString(v)
	}
	return w.b.String()
}
