//go:build !nexprdebug

package vm

import "github.com/agenthands/nexpr/pkg/core/value"

func assertTags([]value.Value, value.Type) {}

func assertEmpty(int) {}
