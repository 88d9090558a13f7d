package grocery

import (
	"encoding/json"
	"strings"
)

// ExtractionOutcome tags the result of decoding an AI extraction response.
type ExtractionOutcome int

const (
	// ExtractionOK means the response decoded to a grocery item array.
	ExtractionOK ExtractionOutcome = iota
	// ExtractionNotApplicable means the model answered with the "no"
	// sentinel: the input was not grocery-related.
	ExtractionNotApplicable
	// ExtractionMalformed means the response was neither the sentinel nor a
	// decodable JSON array. Callers treat it the same as NotApplicable,
	// never as a system error.
	ExtractionMalformed
)

// DecodeExtraction turns a raw model response into a tagged extraction
// result. All the loose handling of model output lives here: markdown fence
// stripping, the "no" sentinel, and responses that only contain a JSON array
// somewhere inside surrounding prose.
func DecodeExtraction(raw string) ([]ParsedItem, ExtractionOutcome) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if strings.EqualFold(cleaned, "no") || strings.EqualFold(cleaned, `"no"`) {
		return nil, ExtractionNotApplicable
	}

	// The model sometimes wraps the array in extra text; slice out the
	// outermost brackets before decoding.
	startIndex := strings.Index(cleaned, "[")
	endIndex := strings.LastIndex(cleaned, "]")
	if startIndex == -1 || endIndex == -1 || startIndex > endIndex {
		return nil, ExtractionMalformed
	}

	var items []ParsedItem
	decoder := json.NewDecoder(strings.NewReader(cleaned[startIndex : endIndex+1]))
	decoder.UseNumber()
	if err := decoder.Decode(&items); err != nil {
		return nil, ExtractionMalformed
	}

	return items, ExtractionOK
}
