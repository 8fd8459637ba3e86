//go:build !cuda
// +build !cuda

package gan

import "gorgonia.org/gorgonia"

const acceleratorAvailable = false

func acceleratorOptions() []gorgonia.VMOpt { return nil }
