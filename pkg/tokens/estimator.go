package tokens

import (
	"sync"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"
)

// CharsPerToken is the ratio used by the heuristic estimator.
const CharsPerToken = 4

// Estimator approximates how many model tokens a block of text consumes.
type Estimator interface {
	Name() string
	Estimate(text string) int
}

// EstimateTokens returns the character count of text divided by four, rounded down.
// Characters are counted as runes, not bytes.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / CharsPerToken
}

type HeuristicEstimator struct{}

var _ Estimator = HeuristicEstimator{}

func (HeuristicEstimator) Name() string {
	return "heuristic"
}

func (HeuristicEstimator) Estimate(text string) int {
	return EstimateTokens(text)
}

// TiktokenEstimator counts tokens with a BPE codec. The codec is loaded lazily on first use,
// and estimation falls back to the heuristic if it cannot be loaded or fails to encode.
type TiktokenEstimator struct {
	encoding string

	once  sync.Once
	codec tokenizer.Codec
	err   error
}

var _ Estimator = (*TiktokenEstimator)(nil)

const DefaultEncoding = "cl100k_base"

func NewTiktokenEstimator(encoding string) *TiktokenEstimator {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	return &TiktokenEstimator{encoding: encoding}
}

func (t *TiktokenEstimator) Name() string {
	return "tiktoken/" + t.encoding
}

func (t *TiktokenEstimator) load() (tokenizer.Codec, error) {
	t.once.Do(func() {
		t.codec, t.err = tokenizer.Get(tokenizer.Encoding(t.encoding))
		if t.err != nil {
			t.err = errors.Wrapf(t.err, "could not load %s codec", t.encoding)
		}
	})
	return t.codec, t.err
}

// Count returns the exact number of tokens in text for the configured encoding.
func (t *TiktokenEstimator) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	codec, err := t.load()
	if err != nil {
		return 0, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, errors.Wrap(err, "error encoding text")
	}
	return len(ids), nil
}

func (t *TiktokenEstimator) Estimate(text string) int {
	n, err := t.Count(text)
	if err != nil {
		return EstimateTokens(text)
	}
	return n
}

// ForName returns the estimator registered under name. Unknown names fall back to the heuristic.
func ForName(name string) Estimator {
	switch name {
	case "tiktoken":
		return NewTiktokenEstimator(DefaultEncoding)
	default:
		return HeuristicEstimator{}
	}
}
