package importer

import (
	"strings"

	"golang.org/x/text/cases"
)

// Field is a semantic column of a bank statement.
type Field int

const (
	FieldPostingDate Field = iota
	FieldValueDate
	FieldDescription
	FieldAmount
	FieldBalance
)

func (f Field) String() string {
	switch f {
	case FieldPostingDate:
		return "posting date"
	case FieldValueDate:
		return "value date"
	case FieldDescription:
		return "description"
	case FieldAmount:
		return "amount"
	case FieldBalance:
		return "balance"
	}
	return "unknown field"
}

// SchemaVariant is one of the two supported statement layouts.
type SchemaVariant int

const (
	VariantEuskera SchemaVariant = iota
	VariantSpanish
)

type column struct {
	name     string // folded header text
	field    Field
	required bool
}

type variantSpec struct {
	name       string
	columns    []column
	vocabulary []string // substrings that identify a header row
	date       func(raw string) string
}

// variantOrder is also the match priority: Euskera wins when both fit.
var variantOrder = []SchemaVariant{VariantEuskera, VariantSpanish}

var variants = map[SchemaVariant]variantSpec{
	VariantEuskera: {
		name: "euskera",
		columns: []column{
			{"data", FieldPostingDate, true},
			{"balio-data", FieldValueDate, false},
			{"azalpena", FieldDescription, true},
			{"eragiketaren zenbatekoa", FieldAmount, true},
			{"saldoa", FieldBalance, true},
		},
		vocabulary: []string{"azalpena", "eragiketaren zenbatekoa", "saldoa"},
		date:       separatorDate,
	},
	VariantSpanish: {
		name: "spanish",
		columns: []column{
			{"fecha", FieldPostingDate, true},
			{"fecha valor", FieldValueDate, false},
			{"concepto", FieldDescription, true},
			{"importe", FieldAmount, true},
			{"saldo", FieldBalance, true},
		},
		vocabulary: []string{"fecha", "concepto", "importe", "saldo"},
		date:       dayFirstDate,
	},
}

func (v SchemaVariant) String() string {
	if spec, ok := variants[v]; ok {
		return spec.name
	}
	return "unknown"
}

// Headers returns the column titles of the variant in layout order.
func (v SchemaVariant) Headers() []string {
	spec := variants[v]
	out := make([]string, len(spec.columns))
	for i, c := range spec.columns {
		out[i] = c.name
	}
	return out
}

// matchesVocabulary reports whether a row's joined non-empty cells contain
// every vocabulary token of the variant, case-insensitively.
func (v SchemaVariant) matchesVocabulary(row []string) bool {
	var parts []string
	for _, cell := range row {
		if s := strings.TrimSpace(cell); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return false
	}
	joined := fold(strings.Join(parts, " "))
	for _, token := range variants[v].vocabulary {
		if !strings.Contains(joined, token) {
			return false
		}
	}
	return true
}

// Mapping binds a variant to the raw column index of each field it found.
type Mapping struct {
	Variant SchemaVariant
	Columns map[Field]int
}

// MapSchema classifies header cells into a variant. Header names must match
// exactly after trimming and case folding.
func MapSchema(header []string) (Mapping, error) {
	present := make(map[string]int)
	var found []string
	for i, cell := range header {
		name := fold(strings.TrimSpace(cell))
		if name == "" {
			continue
		}
		if _, dup := present[name]; !dup {
			present[name] = i
			found = append(found, name)
		}
	}

	for _, v := range variantOrder {
		cols, ok := resolve(variants[v], present)
		if ok {
			return Mapping{Variant: v, Columns: cols}, nil
		}
	}
	return Mapping{}, &UnrecognizedSchemaError{Found: found}
}

func resolve(spec variantSpec, present map[string]int) (map[Field]int, bool) {
	cols := make(map[Field]int, len(spec.columns))
	for _, c := range spec.columns {
		idx, ok := present[c.name]
		if !ok {
			if c.required {
				return nil, false
			}
			continue
		}
		cols[c.field] = idx
	}
	return cols, true
}

// fold applies Unicode case folding. Casers are stateful, so one is built
// per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
