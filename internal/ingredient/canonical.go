// Package ingredient derives canonical ingredient identities and normalizes
// units into grams, millilitres and counts.
package ingredient

import (
	"strings"
	"unicode"
)

var aliases = map[string]string{
	"capsicum":               "bell pepper",
	"bell peppers":           "bell pepper",
	"olive oil extra virgin": "olive oil",
	"extra virgin olive oil": "olive oil",
	"ev olive oil":           "olive oil",
	"evoo":                   "olive oil",
	"garbanzo bean":          "chickpea",
	"scallion":               "spring onion",
	"green onion":            "spring onion",
	"courgette":              "zucchini",
	"aubergine":              "eggplant",
	"coriander leaf":         "cilantro",
	"greek style yogurt":     "greek yogurt",
	"greek yoghurt":          "greek yogurt",
	"yoghurt":                "yogurt",
	"rolled oat":             "oat",
	"porridge oat":           "oat",
}

// descriptors are preparation words that never change what is bought.
var descriptors = map[string]bool{
	"fresh": true, "chopped": true, "diced": true, "sliced": true, "minced": true,
	"grated": true, "large": true, "small": true, "medium": true, "organic": true,
	"raw": true, "cooked": true, "frozen": true, "dried": true, "boneless": true,
	"skinless": true, "finely": true, "roughly": true, "peeled": true, "rinsed": true,
	"drained": true, "canned": true, "halved": true, "crushed": true, "shredded": true,
	"ripe": true, "lean": true, "thinly": true, "cubed": true, "washed": true,
	"trimmed": true, "toasted": true, "uncooked": true, "optional": true,
}

var plurals = map[string]string{
	"oats": "oat", "berries": "berry", "greens": "green", "whites": "white",
	"fillets": "fillet", "eggs": "egg", "bananas": "banana", "peppers": "pepper",
	"tomatoes": "tomato", "potatoes": "potato", "onions": "onion", "carrots": "carrot",
	"olives": "olive", "grapes": "grape", "nuts": "nut", "almonds": "almond",
	"cashews": "cashew", "walnuts": "walnut", "strawberries": "strawberry",
	"blueberries": "blueberry", "raspberries": "raspberry", "cherries": "cherry",
	"peaches": "peach", "apples": "apple", "oranges": "orange", "lemons": "lemon",
	"limes": "lime", "mushrooms": "mushroom", "zucchinis": "zucchini",
	"cucumbers": "cucumber", "lentils": "lentil", "beans": "bean",
	"chickpeas": "chickpea", "shrimps": "shrimp", "sardines": "sardine",
	"anchovies": "anchovy", "herbs": "herb", "spices": "spice", "seeds": "seed",
	"leaves": "leaf", "tortillas": "tortilla", "breasts": "breast", "thighs": "thigh",
	"cloves": "clove", "avocados": "avocado", "scallions": "scallion",
}

// invariant words end in "s" but are already singular.
var invariant = map[string]bool{
	"hummus": true, "asparagus": true, "couscous": true, "molasses": true,
	"swiss": true, "brussels": true, "quinoa": true, "rice": true, "bass": true,
	"grass": true, "cress": true, "citrus": true, "chives": true,
}

// Canonical returns the normalized identity of a raw ingredient name. Names
// that differ only in case, punctuation, preparation descriptors or
// plurality map to the same identity.
func Canonical(raw string) string {
	s := strings.ToLower(raw)
	if i := strings.IndexAny(s, ",;"); i >= 0 {
		s = s[:i]
	}
	s = stripParens(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ':
			return r
		case r == '-' || r == '_' || r == '/':
			return ' '
		default:
			return -1
		}
	}, s)

	words := make([]string, 0, 4)
	for _, w := range strings.Fields(s) {
		if descriptors[w] {
			continue
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return strings.Join(strings.Fields(s), " ")
	}

	joined := strings.Join(words, " ")
	if a, ok := aliases[joined]; ok {
		return a
	}
	words[len(words)-1] = Singular(words[len(words)-1])
	joined = strings.Join(words, " ")
	if a, ok := aliases[joined]; ok {
		return a
	}
	return joined
}

// Singular converts one word to its singular form.
func Singular(w string) string {
	if v, ok := plurals[w]; ok {
		return v
	}
	if invariant[w] || len(w) < 4 {
		return w
	}
	switch {
	case strings.HasSuffix(w, "ies"):
		return strings.TrimSuffix(w, "ies") + "y"
	case strings.HasSuffix(w, "oes"), strings.HasSuffix(w, "ches"),
		strings.HasSuffix(w, "shes"), strings.HasSuffix(w, "xes"):
		return strings.TrimSuffix(w, "es")
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"), strings.HasSuffix(w, "is"):
		return w
	case strings.HasSuffix(w, "s"):
		return strings.TrimSuffix(w, "s")
	}
	return w
}

// connectors start a clause that describes how an ingredient is packed or
// served rather than what it is ("tuna in olive oil", "chicken with herbs").
var connectors = map[string]bool{"in": true, "with": true}

// Head returns the part of a canonical name before its first connector
// clause. A name that starts with a connector is returned unchanged.
func Head(canonical string) string {
	words := strings.Fields(canonical)
	for i, w := range words {
		if i > 0 && connectors[w] {
			return strings.Join(words[:i], " ")
		}
	}
	return strings.Join(words, " ")
}

// HeadNoun returns the last word of Head, the noun naming what is bought.
func HeadNoun(canonical string) string {
	words := strings.Fields(Head(canonical))
	if len(words) == 0 {
		return ""
	}
	return words[len(words)-1]
}

// ID returns the stable grocery identifier of a canonical name,
// e.g. "bell pepper" -> "ing_bell_pepper".
func ID(canonical string) string {
	return "ing_" + strings.ReplaceAll(canonical, " ", "_")
}

// Mentions reports whether text contains the restricted term, either as a
// case-insensitive substring or as a whole-word match after singularizing
// and alias folding.
func Mentions(text, term string) bool {
	term = strings.TrimSpace(strings.ToLower(term))
	if term == "" {
		return false
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, term) {
		return true
	}
	hay := wordForms(lower)
	if containsWords(hay, wordForms(term)) {
		return true
	}
	return containsWords(hay, strings.Fields(Canonical(term)))
}

// wordForms splits text into singular lowercase words, folding two-word
// aliases in place.
func wordForms(text string) []string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, text)
	words := strings.Fields(clean)
	for i, w := range words {
		words[i] = Singular(w)
	}
	out := make([]string, 0, len(words))
	for _, w := range words {
		if a, ok := aliases[w]; ok {
			out = append(out, strings.Fields(a)...)
			continue
		}
		out = append(out, w)
	}
	return out
}

func containsWords(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func stripParens(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
