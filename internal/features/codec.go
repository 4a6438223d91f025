package features

import (
	"fmt"
	"strings"

	"github.com/yourusername/keiba-edge/internal/models"
)

// CodecState maps category values to stable integer codes, per field.
// A code is the value's position in its field table; tables only grow.
// CodecState is a value: encode calls return an updated copy and never
// mutate their input.
type CodecState struct {
	Version int                 `msgpack:"version" json:"version"`
	Fields  map[string][]string `msgpack:"fields" json:"fields"`
}

// NewCodecState returns an empty state.
func NewCodecState() CodecState {
	return CodecState{Fields: map[string][]string{}}
}

// Code returns the code of value in field.
func (s CodecState) Code(field, value string) (int, bool) {
	for i, known := range s.Fields[field] {
		if known == value {
			return i, true
		}
	}
	return 0, false
}

// Len returns the number of coded values in field.
func (s CodecState) Len(field string) int {
	return len(s.Fields[field])
}

// withField returns a copy of s sharing every table except field.
func (s CodecState) withField(field string, table []string) CodecState {
	fields := make(map[string][]string, len(s.Fields)+1)
	for name, values := range s.Fields {
		fields[name] = values
	}
	fields[field] = table
	return CodecState{Version: s.Version + 1, Fields: fields}
}

// EncodeIdentifier codes values against prior. Known values keep their code;
// unseen values get new codes after all existing ones, in first-seen order.
// The same values against the same prior always produce the same output.
func EncodeIdentifier(prior CodecState, field string, values []string) (CodecState, []int) {
	table := prior.Fields[field]
	index := make(map[string]int, len(table)+len(values))
	for i, known := range table {
		index[known] = i
	}

	var added []string
	codes := make([]int, len(values))
	for i, value := range values {
		code, ok := index[value]
		if !ok {
			code = len(table) + len(added)
			index[value] = code
			added = append(added, value)
		}
		codes[i] = code
	}

	if len(added) == 0 {
		return prior, codes
	}
	extended := make([]string, 0, len(table)+len(added))
	extended = append(extended, table...)
	extended = append(extended, added...)
	return prior.withField(field, extended), codes
}

// Vocabulary is the frozen, ordered category set of one nominal column.
type Vocabulary struct {
	Column string   `msgpack:"column" json:"column"`
	Values []string `msgpack:"values" json:"values"`
}

// BuildVocabularies collects each column's distinct non-empty values from a
// reference table in first-seen order.
func BuildVocabularies(reference []models.RaceEntry, columns []string) ([]Vocabulary, error) {
	vocabs := make([]Vocabulary, 0, len(columns))
	for _, column := range columns {
		if !models.IsNominalColumn(column) {
			return nil, fmt.Errorf("%w: %q is not a nominal column", models.ErrInvalidArgument, column)
		}
		seen := make(map[string]struct{})
		vocab := Vocabulary{Column: column}
		for _, entry := range reference {
			value, _ := entry.Nominal(column)
			if value == "" {
				continue
			}
			if _, ok := seen[value]; ok {
				continue
			}
			seen[value] = struct{}{}
			vocab.Values = append(vocab.Values, value)
		}
		vocabs = append(vocabs, vocab)
	}
	return vocabs, nil
}

// OneHotColumns returns the output column names for vocab, in vocabulary order.
func (v Vocabulary) OneHotColumns() []string {
	columns := make([]string, len(v.Values))
	for i, value := range v.Values {
		columns[i] = v.Column + "_" + value
	}
	return columns
}

// EncodeNominal one-hot expands values against vocab. Each output row has one
// slot per vocabulary entry. Empty values encode as all zeros; values outside
// the vocabulary fail with ErrUnknownCategory.
func EncodeNominal(values []string, vocab Vocabulary) ([][]bool, error) {
	index := make(map[string]int, len(vocab.Values))
	for i, value := range vocab.Values {
		index[value] = i
	}

	encoded := make([][]bool, len(values))
	var unknown []string
	for i, value := range values {
		row := make([]bool, len(vocab.Values))
		if value != "" {
			slot, ok := index[value]
			if !ok {
				unknown = append(unknown, value)
				continue
			}
			row[slot] = true
		}
		encoded[i] = row
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: column %s has values outside the vocabulary: %s",
			models.ErrUnknownCategory, vocab.Column, strings.Join(unique(unknown), ", "))
	}
	return encoded, nil
}

func unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
