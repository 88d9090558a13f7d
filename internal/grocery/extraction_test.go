package grocery

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeExtraction(t *testing.T) {
	raw := `[
		{ "name": "rice", "quantity": 1, "unit": "kg", "category": "Grains" },
		{ "name": "eggs", "quantity": 5, "unit": "pieces", "category": "Protein" }
	]`

	items, outcome := DecodeExtraction(raw)
	assert.Equal(t, ExtractionOK, outcome)
	assert.Len(t, items, 2)
	assert.Equal(t, "rice", items[0].Name)
	assert.Equal(t, json.Number("1"), items[0].Quantity)
	assert.Equal(t, "kg", items[0].Unit)
	assert.Equal(t, "Grains", items[0].Category)
	assert.Equal(t, "eggs", items[1].Name)
}

func TestDecodeExtraction_MarkdownFences(t *testing.T) {
	raw := "```json\n[{\"name\": \"milk\", \"quantity\": 2, \"unit\": \"litre\", \"category\": \"Dairy\"}]\n```"

	items, outcome := DecodeExtraction(raw)
	assert.Equal(t, ExtractionOK, outcome)
	assert.Len(t, items, 1)
	assert.Equal(t, "milk", items[0].Name)
}

func TestDecodeExtraction_ArrayInsideProse(t *testing.T) {
	raw := `Here is your grocery list: [{"name": "bread", "quantity": "1", "unit": "loaf", "category": "Bakery"}] enjoy!`

	items, outcome := DecodeExtraction(raw)
	assert.Equal(t, ExtractionOK, outcome)
	assert.Len(t, items, 1)
	assert.Equal(t, json.Number(`1`), items[0].Quantity)
}

func TestDecodeExtraction_StringQuantity(t *testing.T) {
	items, outcome := DecodeExtraction(`[{"name": "flour", "quantity": "2.5", "unit": "kg", "category": "Baking"}]`)
	assert.Equal(t, ExtractionOK, outcome)
	assert.Equal(t, "2.5", items[0].Quantity.String())
}

func TestDecodeExtraction_NotApplicable(t *testing.T) {
	for _, raw := range []string{"no", "NO", " no ", `"no"`, "```\nno\n```"} {
		_, outcome := DecodeExtraction(raw)
		assert.Equal(t, ExtractionNotApplicable, outcome, "input %q", raw)
	}
}

func TestDecodeExtraction_Malformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"I cannot help with that.",
		`{"name": "rice"}`,
		`[{"name": "rice", "quantity":]`,
	} {
		items, outcome := DecodeExtraction(raw)
		assert.Equal(t, ExtractionMalformed, outcome, "input %q", raw)
		assert.Nil(t, items)
	}
}
