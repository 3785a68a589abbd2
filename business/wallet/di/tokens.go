// Package di contains dependency injection tokens for the wallet context.
package di

import (
	"github.com/fd1az/walletgate/business/wallet/app"
	"github.com/fd1az/walletgate/internal/di"
)

// Public service tokens - exposed to other modules
var (
	SessionController = di.NewToken[*app.Controller]("wallet.SessionController")
)

// Private dependency tokens - internal to wallet module
var (
	ProviderSource = di.NewToken[app.ProviderSource]("wallet:providerSource")
	Reporter       = di.NewToken[app.Reporter]("wallet:reporter")
)

// Helper functions for type-safe access
func GetSessionController(c di.ServiceRegistry) *app.Controller {
	return di.GetToken(c, SessionController)
}

func GetProviderSource(c di.ServiceRegistry) app.ProviderSource {
	return di.GetToken(c, ProviderSource)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
