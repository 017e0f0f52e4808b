package scanner

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"ProductScanner/internal/domain"
)

// MinConclusiveCount is the candidate count at which an extraction stage is
// considered good enough and later stages are skipped.
const MinConclusiveCount = 3

// Page is a parsed listing page together with the URL it was fetched from.
type Page struct {
	URL *url.URL
	Doc *goquery.Document
}

// Strategy captures a single extraction stage (structured data, card grid, etc.).
type Strategy interface {
	Name() string
	Extract(page Page) []domain.ProductRecord
}

// Gate decides whether a stage runs given the number of candidates collected so far.
type Gate func(collected int) bool

// Always runs the stage unconditionally.
func Always(int) bool { return true }

// WhileInconclusive runs the stage only while earlier stages found fewer than MinConclusiveCount.
func WhileInconclusive(collected int) bool { return collected < MinConclusiveCount }

// WhenEmpty runs the stage only if nothing was found at all.
func WhenEmpty(collected int) bool { return collected == 0 }

type stage struct {
	strategy Strategy
	gate     Gate
}

// Chain keeps strategies in registration order; earlier stages take precedence.
type Chain struct {
	stages []stage
}

// NewChain builds an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Register appends a strategy guarded by gate. A nil gate means Always.
func (c *Chain) Register(strategy Strategy, gate Gate) {
	if gate == nil {
		gate = Always
	}
	c.stages = append(c.stages, stage{strategy: strategy, gate: gate})
}

// Names lists registered strategies in execution order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.stages))
	for _, s := range c.stages {
		names = append(names, s.strategy.Name())
	}
	return names
}

// Run executes every stage whose gate admits the running candidate count.
// onStage, when set, observes how many records each executed stage produced.
func (c *Chain) Run(page Page, onStage func(name string, count int)) []domain.ProductRecord {
	var collected []domain.ProductRecord
	for _, s := range c.stages {
		if !s.gate(len(collected)) {
			continue
		}
		found := s.strategy.Extract(page)
		if onStage != nil {
			onStage(s.strategy.Name(), len(found))
		}
		collected = append(collected, found...)
	}
	return collected
}

// Enricher merges what a product's detail page reveals into its listing record.
type Enricher interface {
	Enrich(page Page, listing domain.ProductRecord) domain.ProductRecord
}
