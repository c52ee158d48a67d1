package provider

import "context"

// Disabled is selected when AI features are off. Every call fails with
// ErrDisabled.
type Disabled struct{}

func (Disabled) Kind() Kind { return KindDisabled }

func (Disabled) Generate(context.Context, Request) (string, error) {
	return "", ErrDisabled
}

var _ Provider = Disabled{}
