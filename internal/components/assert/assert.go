package assert

import "fmt"

// NotNil panics when value is nil, name is used to identify the value in the panic message.
func NotNil(value any, name ...string) {
	if value == nil {
		panic(fmt.Sprintf("expected %s to be not nil", describe(name)))
	}
}

// NotEmptyStr panics when str is empty.
func NotEmptyStr(str string, name ...string) {
	if str == "" {
		panic(fmt.Sprintf("expected %s to be non-empty", describe(name)))
	}
}

// Positive panics when n <= 0.
func Positive[T int | int64 | float64](n T, name ...string) {
	if n <= 0 {
		panic(fmt.Sprintf("expected %s to be positive, got %v", describe(name), n))
	}
}

func describe(name []string) string {
	if len(name) == 0 {
		return "value"
	}
	return name[0]
}
