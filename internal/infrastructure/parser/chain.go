package parser

import (
	"log/slog"

	"ProductScanner/internal/scanner"
)

// NewListingChain registers the listing stages in fallback order: structured
// data always, card grid and site pattern while inconclusive, Open Graph only
// when nothing was found.
func NewListingChain(logger *slog.Logger) *scanner.Chain {
	chain := scanner.NewChain()
	chain.Register(NewStructuredData(logger), scanner.Always)
	chain.Register(NewCardGrid(), scanner.WhileInconclusive)
	chain.Register(NewAltrexTable(), scanner.WhileInconclusive)
	chain.Register(NewOpenGraph(), scanner.WhenEmpty)
	return chain
}
