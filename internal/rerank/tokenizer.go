package rerank

// pairTokenizer produces BERT-style inputs for a (query, passage) pair:
// [CLS] query [SEP] passage [SEP], hash-based token IDs, padded to maxTokens.
// Token type IDs mark the passage segment.
type pairTokenizer struct{}

const (
	clsToken = 101
	sepToken = 102
	vocabMod = 30000
)

func (pairTokenizer) Tokenize(query, passage string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	pos := 0
	put := func(id int64, segment int64) bool {
		if pos >= maxTokens {
			return false
		}
		inputIDs[pos] = id
		attentionMask[pos] = 1
		tokenTypeIDs[pos] = segment
		pos++
		return true
	}

	put(clsToken, 0)
	for _, w := range splitWords(query) {
		if pos >= maxTokens-2 {
			break
		}
		put(int64(hashWord(w)%vocabMod), 0)
	}
	put(sepToken, 0)
	for _, w := range splitWords(passage) {
		if pos >= maxTokens-1 {
			break
		}
		put(int64(hashWord(w)%vocabMod), 1)
	}
	put(sepToken, 1)
	return inputIDs, attentionMask, tokenTypeIDs
}

func splitWords(text string) []string {
	var words []string
	word := ""
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			if word != "" {
				words = append(words, word)
				word = ""
			}
		} else {
			word += string(r)
		}
	}
	if word != "" {
		words = append(words, word)
	}
	return words
}

func hashWord(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
