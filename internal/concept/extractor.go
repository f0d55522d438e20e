package concept

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/pkg/utils"
	"go.uber.org/zap"
)

const (
	maxConcepts      = 20
	maxBasicConcepts = 15
	contextLen       = 100
)

var (
	acronymRe   = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
	technicalRe = regexp.MustCompile(`\b\w+[-_]\w+(?:[-_]\w+)*\b`)
	wordRe      = regexp.MustCompile(`[\p{L}]{3,}`)
	sentenceRe  = regexp.MustCompile(`[.!?]+`)
	cleanRe     = regexp.MustCompile(`[^\p{L}\p{N}\s_-]`)
	digitsRe    = regexp.MustCompile(`^[0-9]+$`)
)

// Extractor turns note text into a ranked list of candidate concepts.
// With a Tagger it runs the full four-pass extraction; without one it falls
// back to regex-only extraction. Results are cached per (text, title) pair.
type Extractor struct {
	tagger    Tagger
	logger    *zap.Logger
	mu        sync.RWMutex
	cache     map[string][]models.Concept
	stopwords map[string]struct{}
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithTagger enables full NLP extraction with the given tagger.
func WithTagger(t Tagger) ExtractorOption {
	return func(e *Extractor) { e.tagger = t }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an extractor seeded with the default stopword set.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		cache:     make(map[string][]models.Concept),
		stopwords: make(map[string]struct{}, len(defaultStopwords)),
	}
	for _, w := range defaultStopwords {
		e.stopwords[strings.ToLower(w)] = struct{}{}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddStopwords extends the stopword set; subsequent validations see the
// additions immediately. Cached results are invalidated.
func (e *Extractor) AddStopwords(words []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, w := range words {
		e.stopwords[strings.ToLower(w)] = struct{}{}
	}
	e.cache = make(map[string][]models.Concept)
}

// IsStopword reports whether term is in the stopword set.
func (e *Extractor) IsStopword(term string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.stopwords[strings.ToLower(term)]
	return ok
}

// ClearCache drops all cached extraction results.
func (e *Extractor) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string][]models.Concept)
}

// Extract returns the top concepts of text, most relevant first, at most 20.
// titleHint participates in the cache key so distinct notes with identical
// text do not collide.
func (e *Extractor) Extract(text, titleHint string) []models.Concept {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if e.tagger == nil {
		return e.ExtractBasic(text)
	}

	key := cacheKey(text, titleHint)
	e.mu.RLock()
	cached, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return cached
	}

	analysis, err := e.tagger.Analyze(text)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("tagger failed, using basic extraction", zap.Error(err))
		}
		return e.ExtractBasic(text)
	}

	var candidates []models.Concept
	candidates = append(candidates, e.extractEntities(analysis)...)
	candidates = append(candidates, e.extractCompounds(analysis)...)
	candidates = append(candidates, e.extractTechnical(text)...)
	candidates = append(candidates, e.extractByFrequency(analysis, text)...)

	result := e.consolidate(candidates, maxConcepts)

	e.mu.Lock()
	e.cache[key] = result
	e.mu.Unlock()
	return result
}

// ExtractBasic is the regex-only fallback used when no tagger is available:
// word frequency plus an acronym pass, at most 15 concepts.
func (e *Extractor) ExtractBasic(text string) []models.Concept {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var candidates []models.Concept
	counts := make(map[string]int)
	for _, w := range wordRe.FindAllString(text, -1) {
		counts[strings.ToLower(w)]++
	}
	for word, freq := range counts {
		if !e.ValidateTerm(word) {
			continue
		}
		relevance := 0.3 + float64(freq)*0.1
		if relevance > 1.0 {
			relevance = 1.0
		}
		candidates = append(candidates, models.Concept{
			Term:      word,
			Frequency: freq,
			Category:  models.CategoryWord,
			Relevance: relevance,
			Contexts:  contextsFor(text, word, models.MaxConceptContexts),
		})
	}
	candidates = append(candidates, e.extractAcronyms(text)...)

	return e.consolidate(candidates, maxBasicConcepts)
}

// ValidateTerm rejects terms shorter than 3 runes, stopwords, purely numeric
// terms, and terms without any letter.
func (e *Extractor) ValidateTerm(term string) bool {
	if term == "" || len([]rune(term)) < 3 {
		return false
	}
	if e.IsStopword(term) {
		return false
	}
	if digitsRe.MatchString(term) {
		return false
	}
	for _, r := range term {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// extractEntities keeps named entities of person/place/organization/product kind.
func (e *Extractor) extractEntities(a *Analysis) []models.Concept {
	var out []models.Concept
	for _, ent := range a.Entities {
		switch ent.Label {
		case "PERSON", "ORG", "GPE", "PRODUCT":
		default:
			continue
		}
		if len([]rune(strings.TrimSpace(ent.Text))) <= 2 {
			continue
		}
		term := cleanTerm(ent.Text)
		if term == "" || !e.ValidateTerm(term) {
			continue
		}
		out = append(out, models.Concept{
			Term:      term,
			Frequency: 1,
			Category:  models.CategoryEntity,
			Relevance: 0.9,
			Contexts:  sentenceContext(a.Sentences, ent.Text),
		})
	}
	return out
}

// extractCompounds builds noun phrases from each noun plus its adjacent
// modifiers (adjectives and nouns on the left, nouns on the right).
func (e *Extractor) extractCompounds(a *Analysis) []models.Concept {
	var out []models.Concept
	tokens := a.Tokens
	for i, tok := range tokens {
		if !isNoun(tok.Tag) {
			continue
		}
		start := i
		for start > 0 && isModifier(tokens[start-1].Tag) && i-start < 3 {
			start--
		}
		end := i
		for end+1 < len(tokens) && isNoun(tokens[end+1].Tag) && end-i < 2 {
			end++
		}
		parts := make([]string, 0, end-start+1)
		for j := start; j <= end; j++ {
			parts = append(parts, tokens[j].Text)
		}
		term := cleanTerm(strings.Join(parts, " "))
		if term == "" || !e.ValidateTerm(term) {
			continue
		}
		out = append(out, models.Concept{
			Term:      term,
			Frequency: 1,
			Category:  models.CategoryCompound,
			Relevance: 0.8,
			Contexts:  sentenceContext(a.Sentences, tok.Text),
		})
	}
	return out
}

// extractTechnical finds acronyms and hyphen/underscore-joined terms by regex.
func (e *Extractor) extractTechnical(text string) []models.Concept {
	out := e.extractAcronyms(text)
	seen := make(map[string]struct{})
	for _, raw := range technicalRe.FindAllString(text, -1) {
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		term := strings.ToLower(raw)
		if !e.ValidateTerm(term) {
			continue
		}
		out = append(out, models.Concept{
			Term:      term,
			Frequency: strings.Count(text, raw),
			Category:  models.CategoryTechnical,
			Relevance: 0.6,
			Contexts:  contextsFor(text, raw, models.MaxConceptContexts),
		})
	}
	return out
}

func (e *Extractor) extractAcronyms(text string) []models.Concept {
	var out []models.Concept
	seen := make(map[string]struct{})
	for _, raw := range acronymRe.FindAllString(text, -1) {
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		term := strings.ToLower(raw)
		if !e.ValidateTerm(term) {
			continue
		}
		out = append(out, models.Concept{
			Term:      term,
			Frequency: strings.Count(text, raw),
			Category:  models.CategoryAcronym,
			Relevance: 0.7,
			Contexts:  contextsFor(text, raw, models.MaxConceptContexts),
		})
	}
	return out
}

// extractByFrequency counts noun-phrase chunks and individual nouns, keeping
// terms that occur at least twice.
func (e *Extractor) extractByFrequency(a *Analysis, text string) []models.Concept {
	counts := make(map[string]int)

	// Noun chunks: maximal modifier runs ending in a noun.
	tokens := a.Tokens
	for i := 0; i < len(tokens); {
		if !isModifier(tokens[i].Tag) {
			i++
			continue
		}
		j := i
		lastNoun := -1
		for j < len(tokens) && isModifier(tokens[j].Tag) {
			if isNoun(tokens[j].Tag) {
				lastNoun = j
			}
			j++
		}
		if lastNoun > i { // at least two tokens up to the last noun
			parts := make([]string, 0, lastNoun-i+1)
			for k := i; k <= lastNoun; k++ {
				parts = append(parts, tokens[k].Text)
			}
			if term := cleanTerm(strings.Join(parts, " ")); term != "" && e.ValidateTerm(term) {
				counts[term]++
			}
		}
		i = j
	}

	// Individual nouns.
	for _, tok := range tokens {
		if !isNoun(tok.Tag) || len([]rune(tok.Text)) <= 3 {
			continue
		}
		if !isAlphabetic(tok.Text) {
			continue
		}
		if term := cleanTerm(tok.Text); term != "" && e.ValidateTerm(term) {
			counts[term]++
		}
	}

	var out []models.Concept
	for term, freq := range counts {
		if freq < 2 {
			continue
		}
		relevance := 0.5 + float64(freq)*0.1
		if relevance > 1.0 {
			relevance = 1.0
		}
		out = append(out, models.Concept{
			Term:      term,
			Frequency: freq,
			Category:  models.CategoryFrequency,
			Relevance: relevance,
			Contexts:  contextsFor(text, term, models.MaxConceptContexts),
		})
	}
	return out
}

// consolidate merges candidates sharing a term (frequency summed, max
// relevance kept, contexts unioned capped at 3), validates, sorts by
// (relevance, frequency) descending, and truncates to limit.
func (e *Extractor) consolidate(candidates []models.Concept, limit int) []models.Concept {
	groups := make(map[string][]models.Concept)
	order := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := groups[c.Term]; !ok {
			order = append(order, c.Term)
		}
		groups[c.Term] = append(groups[c.Term], c)
	}

	merged := make([]models.Concept, 0, len(groups))
	for _, term := range order {
		group := groups[term]
		if !e.ValidateTerm(term) {
			continue
		}
		if len(group) == 1 {
			merged = append(merged, group[0])
			continue
		}
		best := group[0]
		freq := 0
		seenCtx := make(map[string]struct{})
		var contexts []string
		for _, c := range group {
			freq += c.Frequency
			if c.Relevance > best.Relevance {
				best = c
			}
			for _, ctx := range c.Contexts {
				if _, dup := seenCtx[ctx]; dup {
					continue
				}
				seenCtx[ctx] = struct{}{}
				if len(contexts) < models.MaxConceptContexts {
					contexts = append(contexts, ctx)
				}
			}
		}
		merged = append(merged, models.Concept{
			Term:      term,
			Frequency: freq,
			Category:  best.Category,
			Relevance: best.Relevance,
			Contexts:  contexts,
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Relevance != merged[j].Relevance {
			return merged[i].Relevance > merged[j].Relevance
		}
		if merged[i].Frequency != merged[j].Frequency {
			return merged[i].Frequency > merged[j].Frequency
		}
		return merged[i].Term < merged[j].Term
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// cleanTerm strips punctuation (keeping hyphen and underscore), collapses
// whitespace, and lowercases.
func cleanTerm(term string) string {
	cleaned := cleanRe.ReplaceAllString(term, "")
	return strings.ToLower(utils.CollapseWhitespace(cleaned))
}

// contextsFor returns up to max sentence snippets of text containing term.
func contextsFor(text, term string, max int) []string {
	var contexts []string
	for _, sentence := range sentenceRe.Split(text, -1) {
		if len(contexts) >= max {
			break
		}
		if !utils.ContainsWholeWord(sentence, term) {
			continue
		}
		snippet := utils.Truncate(strings.TrimSpace(sentence), contextLen)
		if snippet != "" {
			contexts = append(contexts, snippet)
		}
	}
	return contexts
}

// sentenceContext returns the first sentence containing s, truncated, or nil.
func sentenceContext(sentences []string, s string) []string {
	for _, sentence := range sentences {
		if strings.Contains(sentence, s) {
			return []string{utils.Truncate(strings.TrimSpace(sentence), contextLen)}
		}
	}
	return nil
}

func isAlphabetic(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

func cacheKey(text, title string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(title))
	return hex.EncodeToString(h.Sum(nil))
}
