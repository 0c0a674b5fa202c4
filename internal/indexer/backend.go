package indexer

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/codec"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/inverted"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/sequential"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/suffixarray"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
)

// Backend is one index structure over a corpus. Search takes a single
// query token and returns matches in document order.
type Backend interface {
	Type() segment.IndexType
	Name() string
	AddDocument(title string, content []byte) error
	Build() error
	Search(token []byte) ([]corpus.Result, error)
	Save(enc *segment.Encoder) error
	Load(dec *segment.Decoder) error
	Size() int
	TermCount() int
	Corpus() *corpus.Corpus
}

// Index method names accepted by NewBackend.
const (
	MethodSequential      = "seq"
	MethodInverted        = "inv"
	MethodOneGram         = "1gram"
	MethodTwoGram         = "2gram"
	MethodSuffixArray     = "sa"
	MethodSuffixArrayUTF8 = "sa8"
)

// Methods lists the method names in the order they are documented.
var Methods = []string{MethodSequential, MethodInverted, MethodOneGram, MethodTwoGram, MethodSuffixArray, MethodSuffixArrayUTF8}

// NewBackend returns an empty backend for method. compress applies to the
// inverted variants only and is ignored by the others.
func NewBackend(method, compress string) (Backend, error) {
	cm, err := codec.ParseMethod(compress)
	if err != nil {
		return nil, err
	}
	switch method {
	case MethodSequential:
		return sequential.New(), nil
	case MethodInverted:
		return inverted.New(tokenizer.Separated, cm), nil
	case MethodOneGram:
		return inverted.New(tokenizer.OneGram, cm), nil
	case MethodTwoGram:
		return inverted.New(tokenizer.TwoGram, cm), nil
	case MethodSuffixArray:
		return suffixarray.New(false), nil
	case MethodSuffixArrayUTF8:
		return suffixarray.New(true), nil
	default:
		return nil, fmt.Errorf("index method %q: %w", method, apperrors.ErrUnknownTag)
	}
}

// backendFor returns an empty backend able to load a file tagged t.
func backendFor(t segment.IndexType) (Backend, error) {
	switch t {
	case segment.QuickSearch:
		return sequential.New(), nil
	case segment.OneGram:
		return inverted.New(tokenizer.OneGram, codec.None), nil
	case segment.TwoGram:
		return inverted.New(tokenizer.TwoGram, codec.None), nil
	case segment.InvertedFile:
		return inverted.New(tokenizer.Separated, codec.None), nil
	case segment.SuffixArray:
		return suffixarray.New(false), nil
	case segment.SuffixArrayUTF8:
		return suffixarray.New(true), nil
	default:
		return nil, fmt.Errorf("index tag %d: %w", t, apperrors.ErrUnknownTag)
	}
}
