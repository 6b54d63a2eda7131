package evaluator

import (
	"io"
	"strings"
	"time"

	"bis/internal/object"
)

// builtins returns the natives predefined in the global frame.
func (e *Evaluator) builtins() map[string]*object.Builtin {
	return map[string]*object.Builtin{
		"clock": funcClock(e.now),
		"print": funcPrint(e.out),
	}
}

// funcClock returns the current Unix time in whole seconds.
func funcClock(now func() time.Time) *object.Builtin {
	return &object.Builtin{
		BuiltinName: "clock",
		ArgCount:    0,
		Fn: func(args ...object.Object) (object.Object, error) {
			return &object.Number{Value: float64(now().Unix())}, nil
		},
	}
}

// funcPrint writes every argument followed by a single space. No newline is
// added; a "\n" escape inside a string produces one.
func funcPrint(out io.Writer) *object.Builtin {
	return &object.Builtin{
		BuiltinName: "print",
		ArgCount:    -1,
		Fn: func(args ...object.Object) (object.Object, error) {
			var sb strings.Builder
			for _, arg := range args {
				sb.WriteString(formatForPrint(arg))
				sb.WriteByte(' ')
			}
			if _, err := io.WriteString(out, sb.String()); err != nil {
				return nil, err
			}
			return NIL, nil
		},
	}
}

var escapeReplacer = strings.NewReplacer(`\n`, "\n", `\t`, "\t")

func formatForPrint(obj object.Object) string {
	switch o := obj.(type) {
	case *object.String:
		return escapeReplacer.Replace(o.Value)
	case *object.List:
		if len(o.Elements) == 0 {
			return "[ ]"
		}
		parts := make([]string, len(o.Elements))
		for i, el := range o.Elements {
			parts[i] = formatForPrint(el)
		}
		return "[ " + strings.Join(parts, ", ") + " ]"
	default:
		return obj.Inspect()
	}
}
