// Package parser splits a raw query into the tokens that are searched and
// intersected.
package parser

import (
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/tokenizer"
)

// QueryPlan is a conjunctive query: every term must occur in a document.
type QueryPlan struct {
	Terms    []string
	RawQuery string
}

// Parse splits query on ASCII whitespace. Every token is kept, repeats
// included.
func Parse(query string) *QueryPlan {
	return &QueryPlan{
		Terms:    tokenizer.Fields(query),
		RawQuery: query,
	}
}

func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}
