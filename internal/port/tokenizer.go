package port

// Tokenizer splits text into normalized terms.
type Tokenizer interface {
	Tokenize(text string) []string

	// Terms returns the tokens of text and its adjacent token pairs.
	Terms(text string) (unigrams, bigrams []string)
}
