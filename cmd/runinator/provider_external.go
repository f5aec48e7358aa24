package main

import (
	"context"

	"github.com/runinator/runinator/pkg/provider"
)

// providerRegisterExternal launches the external provider executable and
// registers it under actionName so the worker's normal Lookup resolves
// to it just like a built-in.
func providerRegisterExternal(ctx context.Context, executable, actionName string) (*provider.ExternalProvider, error) {
	ep, err := provider.NewExternalProvider(ctx, executable)
	if err != nil {
		return nil, err
	}
	ep.RegisterAs(actionName)
	return ep, nil
}
