package crscope

import "fmt"

func errFromPanic(p any) error {
	return fmt.Errorf("crscope: panic: %v", p)
}
