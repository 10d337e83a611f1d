//go:build nexprdebug

package vm

import (
	"fmt"

	"github.com/agenthands/nexpr/pkg/core/value"
)

// Built with -tags nexprdebug, Evaluate verifies the stack shape the emitter
// promised.

func assertTags(operands []value.Value, want value.Type) {
	for _, v := range operands {
		if v.Type != want {
			panic(fmt.Sprintf("vm: operand tag %v, want %v", v.Type, want))
		}
	}
}

func assertEmpty(sp int) {
	if sp != 0 {
		panic(fmt.Sprintf("vm: %d values left on stack after return", sp))
	}
}
