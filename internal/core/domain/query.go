package domain

// Intent is the recognised purpose of a query.
type Intent string

// Query intents.
const (
	IntentFact       Intent = "fact"
	IntentDefinition Intent = "definition"
	IntentHowTo      Intent = "howto"
	IntentComparison Intent = "comparison"
	IntentQuote      Intent = "quote"
)

// Valid reports whether the intent is one of the five recognised intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentFact, IntentDefinition, IntentHowTo, IntentComparison, IntentQuote:
		return true
	}
	return false
}

// Breadth controls how widely retrieval casts its net.
type Breadth string

// Retrieval breadths.
const (
	BreadthNarrow Breadth = "narrow"
	BreadthWide   Breadth = "wide"
)

// QueryClass is the classification of a free-text query.
type QueryClass struct {
	Intent  Intent
	Breadth Breadth
}
