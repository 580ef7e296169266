// Package search ranks short shop notes (opening hours, delivery areas,
// payment FAQs) against a customer message so the assistant can quote them.
//
// Notes are paragraphs of a Markdown file. Scoring is Jaccard similarity of
// case-folded word sets: |Q ∩ P| / |Q ∪ P|. An Index is immutable after
// construction and safe for concurrent use.
package search

import (
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// DefaultK is used when TopK is called with k <= 0.
const DefaultK = 3

// Result is a ranked note.
type Result struct {
	Snippet string
	Score   float64
}

// Index ranks notes for a query.
type Index interface {
	TopK(query string, k int) []Result
}

// Option tunes index construction.
type Option func(*options)

type options struct {
	minRunes  int
	maxNotes  int
	stopwords map[string]struct{}
}

// WithMinRunes drops notes shorter than n runes. The default is 10.
func WithMinRunes(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.minRunes = n
		}
	}
}

// WithMaxNotes keeps only the first n notes.
func WithMaxNotes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxNotes = n
		}
	}
}

// WithStopwords ignores the given words in notes and queries.
func WithStopwords(words ...string) Option {
	return func(o *options) {
		for _, w := range words {
			if w = foldWord(w); w != "" {
				o.stopwords[w] = struct{}{}
			}
		}
	}
}

// DefaultStopwords are common English filler words in customer chats.
var DefaultStopwords = []string{
	"a", "an", "and", "are", "do", "does", "i", "is", "it", "me", "my",
	"of", "on", "or", "please", "the", "to", "u", "we", "what", "you",
}

type note struct {
	text  string
	words map[string]struct{}
	runes int
}

type index struct {
	stop  map[string]struct{}
	notes []note
}

// New builds an Index from paragraphs.
func New(paragraphs []string, opts ...Option) Index {
	o := options{minRunes: 10, stopwords: map[string]struct{}{}}
	for _, fn := range opts {
		fn(&o)
	}

	idx := &index{stop: o.stopwords}
	for _, p := range paragraphs {
		t := collapseSpaces(p)
		n := utf8.RuneCountInString(t)
		if t == "" || n < o.minRunes {
			continue
		}
		words := wordSet(t, idx.stop)
		if len(words) == 0 {
			continue
		}
		idx.notes = append(idx.notes, note{text: t, words: words, runes: n})
		if o.maxNotes > 0 && len(idx.notes) == o.maxNotes {
			break
		}
	}
	return idx
}

// Load reads a Markdown notes file. Table rows become standalone notes.
func Load(path string, opts ...Option) (Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(Paragraphs(string(raw)), opts...), nil
}

// TopK returns up to k notes sharing words with query, best first. Ties go
// to the shorter note, then lexical order.
func (i *index) TopK(query string, k int) []Result {
	if len(i.notes) == 0 {
		return nil
	}
	q := wordSet(query, i.stop)
	if len(q) == 0 {
		return nil
	}
	if k <= 0 {
		k = DefaultK
	}

	type hit struct {
		n     *note
		score float64
	}
	var hits []hit
	for j := range i.notes {
		n := &i.notes[j]
		shared := intersect(q, n.words)
		if shared == 0 {
			continue
		}
		hits = append(hits, hit{n: n, score: float64(shared) / float64(len(q)+len(n.words)-shared)})
	}
	sort.SliceStable(hits, func(a, b int) bool {
		switch {
		case hits[a].score != hits[b].score:
			return hits[a].score > hits[b].score
		case hits[a].n.runes != hits[b].n.runes:
			return hits[a].n.runes < hits[b].n.runes
		default:
			return hits[a].n.text < hits[b].n.text
		}
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	if len(hits) == 0 {
		return nil
	}
	out := make([]Result, len(hits))
	for j, h := range hits {
		out[j] = Result{Snippet: h.n.text, Score: h.score}
	}
	return out
}

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

func foldWord(w string) string {
	return cases.Fold().String(strings.TrimSpace(w))
}

func wordSet(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(cases.Fold().String(s), -1)
	if len(words) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := stop[w]; !skip {
			set[w] = struct{}{}
		}
	}
	return set
}

func intersect(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
