package assert

import "fmt"

// NotNil panics when the value is nil; used to guard singleton assembly.
func NotNil(v interface{}) {
	if v == nil {
		panic("assert: value must not be nil")
	}
}

// NotCircular is a marker placed at the top of DefaultX constructors to flag
// accidental recursive initialization during assembly.
func NotCircular() {
	// no-op at runtime; kept for grep-ability when diagnosing init cycles
}

// Must panics with a formatted message when err is not nil.
func Must(err error, format string, args ...interface{}) {
	if err != nil {
		panic(fmt.Sprintf(format+": %v", append(args, err)...))
	}
}
