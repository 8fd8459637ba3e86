package gan

import (
	"fmt"
	"strings"

	"gorgonia.org/gorgonia"
)

// ActivationFunc Just an alias to Gorgonia'a api_gen.go - https://github.com/gorgonia/gorgonia/blob/master/api_gen.go#L1
type ActivationFunc func(a *gorgonia.Node) (*gorgonia.Node, error)

func NoActivation(a *gorgonia.Node) (*gorgonia.Node, error) { return a, nil }
func Tanh(a *gorgonia.Node) (*gorgonia.Node, error)         { return gorgonia.Tanh(a) }
func Sigmoid(a *gorgonia.Node) (*gorgonia.Node, error)      { return gorgonia.Sigmoid(a) }
func Rectify(a *gorgonia.Node) (*gorgonia.Node, error)      { return gorgonia.Rectify(a) }

// LeakyRectify ReLU with 0.2 slope for negative inputs (DCGAN-style discriminators)
func LeakyRectify(a *gorgonia.Node) (*gorgonia.Node, error) { return gorgonia.LeakyRelu(a, 0.2) }

var activationsByName = map[string]ActivationFunc{
	"":        NoActivation,
	"none":    NoActivation,
	"linear":  NoActivation,
	"tanh":    Tanh,
	"sigmoid": Sigmoid,
	"relu":    Rectify,
	"leaky":   LeakyRectify,
}

// ActivationByName Resolves activation configured in YAML/flags ("relu", "tanh", "sigmoid", "leaky", "none")
func ActivationByName(name string) (ActivationFunc, error) {
	f, ok := activationsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("Activation '%s' is not supported", name)
	}
	return f, nil
}
