//go:build cuda
// +build cuda

package gan

import "gorgonia.org/gorgonia"

const acceleratorAvailable = true

func acceleratorOptions() []gorgonia.VMOpt {
	return []gorgonia.VMOpt{gorgonia.UseCudaFor()}
}
