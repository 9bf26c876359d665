// Package normalize implements query preprocessing shared by every search
// path: lowercasing, domain synonym expansion, and stop-word filtering.
// All functions are pure and deterministic.
package normalize

import "strings"

// synonymEntry pairs a support-domain term with related terms. When the
// lowercased query contains the term, the related terms are appended to the
// query (expansion, not replacement, so exact matches keep working). The
// table is an ordered slice so expansion output is deterministic. It covers
// Dutch and English since tenant content is predominantly Dutch.
type synonymEntry struct {
	term    string
	related []string
}

var synonyms = []synonymEntry{
	{"prijs", []string{"prijzen", "kosten", "tarief", "tarieven"}},
	{"kosten", []string{"prijs", "prijzen", "tarief"}},
	{"betalen", []string{"betaling", "betaalmethode", "betaalmogelijkheden", "ideal"}},
	{"verzenden", []string{"verzending", "bezorging", "levering"}},
	{"levertijd", []string{"levering", "bezorging", "verzending"}},
	{"retour", []string{"retourneren", "terugsturen", "ruilen", "terugbetaling"}},
	{"garantie", []string{"waarborg", "reparatie", "defect"}},
	{"korting", []string{"kortingscode", "aanbieding", "actie", "sale"}},
	{"contact", []string{"telefoon", "email", "bereiken", "klantenservice"}},
	{"account", []string{"inloggen", "login", "profiel", "registreren"}},
	{"openingstijden", []string{"geopend", "tijden"}},
	{"price", []string{"prices", "pricing", "cost", "costs", "fee"}},
	{"shipping", []string{"delivery", "postage", "freight"}},
	{"refund", []string{"return", "returns", "reimbursement"}},
	{"warranty", []string{"guarantee", "repair"}},
	{"subscription", []string{"abonnement", "plan", "membership"}},
	{"cancel", []string{"annuleren", "opzeggen", "stopzetten"}},
}

// stopWords are filtered out of normalized queries. Mixed Dutch/English,
// mirroring the language mix of incoming questions.
var stopWords = map[string]struct{}{
	// Dutch
	"de": {}, "het": {}, "een": {}, "van": {}, "voor": {}, "met": {},
	"aan": {}, "bij": {}, "naar": {}, "uit": {}, "over": {}, "dat": {},
	"dit": {}, "die": {}, "deze": {}, "wat": {}, "hoe": {}, "waar": {},
	"wanneer": {}, "waarom": {}, "wie": {}, "zijn": {}, "ben": {},
	"bent": {}, "was": {}, "worden": {}, "wordt": {}, "kan": {},
	"kunnen": {}, "moet": {}, "moeten": {}, "wil": {}, "willen": {},
	"heb": {}, "heeft": {}, "hebben": {}, "mijn": {}, "jouw": {},
	"jullie": {}, "ook": {}, "nog": {}, "wel": {}, "niet": {},
	// English
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"what": {}, "how": {}, "where": {}, "when": {}, "why": {}, "who": {},
	"are": {}, "can": {}, "could": {}, "would": {}, "should": {},
	"have": {}, "has": {}, "you": {}, "your": {}, "our": {}, "not": {},
	"does": {}, "do": {}, "is": {}, "it": {}, "my": {}, "me": {},
}

const minTokenLen = 3

// Normalize lowercases and trims the query, appends domain synonyms for any
// matched term, and drops stop-words and tokens shorter than three
// characters. Duplicate tokens are removed (first occurrence wins), which
// keeps repeated normalization stable for already-normalized input.
//
// If filtering would leave no tokens at all, the pre-filter text is returned
// instead so that matching callers always receive at least one term.
func Normalize(raw string) string {
	expanded := expand(strings.ToLower(strings.TrimSpace(raw)))

	kept := filterTokens(strings.Fields(expanded))
	if len(kept) == 0 {
		return expanded
	}
	return strings.Join(kept, " ")
}

// Keywords returns the normalized query as a token list, for callers that
// score by keyword overlap. The same empty-result fallback applies: if
// filtering removes everything, the unfiltered tokens are returned.
func Keywords(raw string) []string {
	expanded := expand(strings.ToLower(strings.TrimSpace(raw)))

	tokens := strings.Fields(expanded)
	kept := filterTokens(tokens)
	if len(kept) == 0 {
		return dedup(tokens)
	}
	return kept
}

// expand appends the related terms of every table entry whose term is
// contained in text.
func expand(text string) string {
	if text == "" {
		return text
	}
	var sb strings.Builder
	sb.WriteString(text)
	for _, entry := range synonyms {
		if strings.Contains(text, entry.term) {
			sb.WriteByte(' ')
			sb.WriteString(strings.Join(entry.related, " "))
		}
	}
	return sb.String()
}

func filterTokens(tokens []string) []string {
	kept := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if len([]rune(tok)) < minTokenLen {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		kept = append(kept, tok)
	}
	return kept
}

func dedup(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
