// Package index builds queries against the full-text media index.
package index

import (
	"strings"
)

// Query is an OR of prefix matches over normalized keyword tokens.
type Query struct {
	Tokens []string
}

// Summary is the slice of a media row a results page needs.
type Summary struct {
	ID       string
	Caption  string
	FileName string
}

// Build turns normalized tokens into a Query. Duplicate tokens are dropped,
// order is kept.
func Build(tokens []string) Query {
	seen := make(map[string]struct{}, len(tokens))
	q := Query{Tokens: make([]string, 0, len(tokens))}
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		q.Tokens = append(q.Tokens, tok)
	}
	return q
}

// Empty reports whether the query can match nothing.
func (q Query) Empty() bool {
	return len(q.Tokens) == 0
}

// Expression renders the query for PostgreSQL to_tsquery:
// 'tok1':* | 'tok2':*
func (q Query) Expression() string {
	parts := make([]string, len(q.Tokens))
	for i, tok := range q.Tokens {
		parts[i] = "'" + escapeLexeme(tok) + "':*"
	}
	return strings.Join(parts, " | ")
}

// LikePatterns renders one word-prefix LIKE pattern per token, matched against
// ' ' || keywords. Used where the store has no tsquery support.
func (q Query) LikePatterns() []string {
	patterns := make([]string, len(q.Tokens))
	for i, tok := range q.Tokens {
		patterns[i] = "% " + escapeLike(tok) + "%"
	}
	return patterns
}

func escapeLexeme(tok string) string {
	tok = strings.ReplaceAll(tok, `\`, `\\`)
	return strings.ReplaceAll(tok, `'`, `''`)
}

func escapeLike(tok string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(tok)
}
