package abstractcluster

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// blobCorpus builds well separated blobs. Blob k sits at 10*e(3k) with its
// points on a circle of radius 0.5 in the two following dimensions, so
// blobs are mutually orthogonal.
func blobCorpus(sizes ...int) Corpus {
	width := 3 * len(sizes)
	var corpus Corpus
	for k, size := range sizes {
		for i := 0; i < size; i++ {
			theta := 2 * math.Pi * float64(i) / float64(size)
			v := make([]float64, width)
			v[3*k] = 10
			v[3*k+1] = 0.5 * math.Cos(theta)
			v[3*k+2] = 0.5 * math.Sin(theta)
			corpus = append(corpus, &Document{
				DocID:     fmt.Sprintf("b%d-%03d", k, i),
				Title:     fmt.Sprintf("Blob %d document %d", k, i),
				Abstract:  blobTexts[k%len(blobTexts)],
				Embedding: v,
			})
		}
	}
	return corpus
}

var blobTexts = []string{
	"Urban air temperature rises in dense districts. Air temperature sensors record the heat.",
	"Street trees provide shade canopy. Tree canopy cover reduces runoff.",
	"Transit ridership grows near stations. Bus ridership data shows demand.",
}

// lexiconTagger is a deterministic Tagger for tests. Words are tagged from
// a small lexicon and default to NN; numbers are CD and punctuation is
// tagged with itself.
type lexiconTagger struct {
	tags map[string]string
}

func newLexiconTagger() *lexiconTagger {
	return &lexiconTagger{tags: map[string]string{
		"the": "DT", "a": "DT", "in": "IN", "of": "IN", "near": "IN", "by": "IN",
		"rises": "VBZ", "record": "VBP", "provide": "VBP", "reduces": "VBZ",
		"grows": "VBZ", "shows": "VBZ", "is": "VBZ", "are": "VBP", "measure": "VBP",
		"urban": "JJ", "dense": "JJ", "new": "NNP", "york": "NNP", "all": "NN",
		"districts": "NNS", "sensors": "NNS", "trees": "NNS", "stations": "NNS",
		"emissions": "NNS", "streets": "NNS",
	}}
}

func (t *lexiconTagger) Sentences(text string) ([]string, error) {
	var out []string
	for _, s := range strings.Split(text, ".") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (t *lexiconTagger) Tag(sentence string) ([]TaggedToken, error) {
	var out []TaggedToken
	for _, f := range strings.Fields(sentence) {
		trail := ""
		if r := rune(f[len(f)-1]); unicode.IsPunct(r) && len(f) > 1 {
			trail = string(r)
			f = f[:len(f)-1]
		}
		out = append(out, TaggedToken{Text: f, Tag: t.tagOf(f)})
		if trail != "" {
			out = append(out, TaggedToken{Text: trail, Tag: trail})
		}
	}
	return out, nil
}

func (t *lexiconTagger) tagOf(word string) string {
	if tag, ok := t.tags[strings.ToLower(word)]; ok {
		return tag
	}
	if unicode.IsDigit(rune(word[0])) {
		return "CD"
	}
	return "NN"
}

// funcClusterer adapts a function to DensityClusterer.
type funcClusterer func(n, minClusterSize, minSamples int, epsilon float64) ([]int, error)

func (f funcClusterer) Cluster(dm *DistanceMatrix, minClusterSize, minSamples int, epsilon float64) ([]int, error) {
	return f(dm.Len(), minClusterSize, minSamples, epsilon)
}

// funcReducer adapts a function to Reducer.
type funcReducer func(vectors [][]float64, dim int) ([][]float64, error)

func (f funcReducer) Reduce(vectors [][]float64, dim int) ([][]float64, error) {
	return f(vectors, dim)
}

// blobLabels returns the true blob index of each document of blobCorpus.
func blobLabels(sizes ...int) []int {
	var labels []int
	for k, size := range sizes {
		for i := 0; i < size; i++ {
			labels = append(labels, k)
		}
	}
	return labels
}

func testConfig() PipelineConfig {
	cfg := DefaultPipelineConfig()
	cfg.Dimensions = []int{0}
	cfg.MinClusterSizes = []int{10}
	cfg.MinSamples = []int{5}
	cfg.Epsilons = []float64{0}
	cfg.Workers = 2
	cfg.MinQuality = -1
	return cfg
}
