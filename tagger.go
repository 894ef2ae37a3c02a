package abstractcluster

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
	"golang.org/x/text/unicode/norm"
)

// TaggedToken is a token with its Penn Treebank part-of-speech tag.
type TaggedToken struct {
	Text string
	Tag  string
}

// Tagger splits text into sentences and tags the tokens of a sentence.
type Tagger interface {
	Sentences(text string) ([]string, error)
	Tag(sentence string) ([]TaggedToken, error)
}

// ProseTagger tags English text with the prose averaged perceptron model.
type ProseTagger struct{}

// Sentences implements Tagger.
func (ProseTagger) Sentences(text string) ([]string, error) {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to segment text: %w", err)
	}
	var out []string
	for _, s := range doc.Sentences() {
		out = append(out, s.Text)
	}
	return out, nil
}

// Tag implements Tagger.
func (ProseTagger) Tag(sentence string) ([]TaggedToken, error) {
	doc, err := prose.NewDocument(sentence,
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to tag sentence: %w", err)
	}
	tokens := doc.Tokens()
	out := make([]TaggedToken, len(tokens))
	for i, tok := range tokens {
		out[i] = TaggedToken{Text: tok.Text, Tag: tok.Tag}
	}
	return out, nil
}

// boilerplateMarkers identify publisher sentences that are not part of an abstract.
var boilerplateMarkers = []string{"copyright", "licensee", "rights reserved", "©"}

// cleanSentences normalises text and returns its sentences without
// copyright notices.
func cleanSentences(t Tagger, text string) ([]string, error) {
	sentences, err := t.Sentences(norm.NFKC.String(text))
	if err != nil {
		return nil, err
	}
	out := sentences[:0]
	for _, s := range sentences {
		ls := strings.ToLower(s)
		keep := strings.TrimSpace(s) != ""
		for _, m := range boilerplateMarkers {
			if strings.Contains(ls, m) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, s)
		}
	}
	return out, nil
}
