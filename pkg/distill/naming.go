package distill

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	handlerPrefix      = "process"
	fieldHandlerSuffix = "Field"
	typeHandlerSuffix  = "Type"
	hookPrefix         = "distill_process_"
)

// MachineNameToUnderscore strips the angle brackets from a machine name,
// e.g. "list<string>" becomes "liststring".
func MachineNameToUnderscore(machineName string) string {
	return strings.NewReplacer(">", "", "<", "").Replace(machineName)
}

// MachineNameToCamelCase converts an underscore separated machine name into
// capitalized words with no separator: "field_my_type" becomes "FieldMyType".
func MachineNameToCamelCase(machineName string) string {
	words := strings.FieldsFunc(MachineNameToUnderscore(machineName), func(r rune) bool {
		return r == '_' || unicode.IsSpace(r)
	})

	var b strings.Builder
	for _, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(w[size:])
	}
	return b.String()
}

// FieldHandlerName returns the identifier of the handler scoped to a field name.
func FieldHandlerName(fieldName string) string {
	return handlerPrefix + MachineNameToCamelCase(fieldName) + fieldHandlerSuffix
}

// TypeHandlerName returns the identifier of the handler scoped to a field type.
func TypeHandlerName(fieldType string) string {
	return handlerPrefix + MachineNameToCamelCase(fieldType) + typeHandlerSuffix
}

// HookName returns the extension hook invoked for a field type without handlers.
func HookName(fieldType string) string {
	return hookPrefix + MachineNameToUnderscore(fieldType)
}
