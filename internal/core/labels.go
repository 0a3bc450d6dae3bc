package core

import "strings"

// CategoryLabels maps the well-known expense category codes to their
// human labels.
var CategoryLabels = map[string]string{
	"marketing":          "Marketing",
	"salaries":           "Salaries",
	"utilities":          "Utilities",
	"rent":               "Rent",
	"equipment":          "Equipment",
	"travel":             "Travel",
	"food_entertainment": "Food & Entertainment",
	"other":              "Other",
}

// PaymentMethodLabels maps the well-known payment method codes to their
// human labels.
var PaymentMethodLabels = map[string]string{
	"cash":           "Cash",
	"card":           "Credit/Debit Card",
	"bank_transfer":  "Bank Transfer",
	"check":          "Check",
	"digital_wallet": "Digital Wallet",
	"other":          "Other",
}

// DisplayLabel resolves a code to its human label. Codes outside the
// mapping are a normal case, not an error: user-supplied free-text
// categories fall back to a title-cased rendering of the raw code.
func DisplayLabel(code string, labels map[string]string) string {
	if label, ok := labels[code]; ok {
		return label
	}
	return titleCase(code)
}

// Display returns the human label for an expense category.
func (c Category) Display() string {
	return DisplayLabel(string(c), CategoryLabels)
}

// Display returns the human label for a payment method.
func (p PaymentMethod) Display() string {
	return DisplayLabel(string(p), PaymentMethodLabels)
}

// titleCase capitalizes each word of a raw code, treating underscores
// as word separators: "consulting" -> "Consulting", "office_supplies"
// -> "Office Supplies".
func titleCase(code string) string {
	words := strings.FieldsFunc(code, func(r rune) bool {
		return r == ' ' || r == '_'
	})
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
