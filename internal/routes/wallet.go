package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/intake"
	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/wallet"
)

// RegisterWalletRoutes wires the authenticated money endpoints: balance
// reads, deposit and withdrawal requests, and transaction history.
func RegisterWalletRoutes(r fiber.Router, wallets *wallet.Handler, requests *intake.Handler, history *ledger.Handler) {
	r.Get("/wallet/balance", wallets.Balance)
	r.Post("/wallet/deposit", requests.Deposit)
	r.Post("/wallet/withdraw", requests.Withdraw)
	r.Get("/transactions", history.History)
}
