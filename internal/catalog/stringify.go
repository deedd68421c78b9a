package catalog

import "fmt"

// toString is a narrow fmt.Sprintf wrapper kept as its own function so
// call sites read as an intentional stringification, not a stray %v.
func toString(v interface{}) string {
	return fmt.Sprintf("%v", v)
}
