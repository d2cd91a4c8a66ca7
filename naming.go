package tristate

import (
	"strings"

	"github.com/iancoleman/strcase"
)

// NamingPolicy derives a member's wire name from its Go field name when no
// tag names it. A nil policy keeps the Go name.
type NamingPolicy func(name string) string

var (
	// CamelCase lower-cases the first word: "FirstName" -> "firstName".
	CamelCase NamingPolicy = strcase.ToLowerCamel
	// SnakeCase joins lower-cased words with '_': "UserID" -> "user_id".
	SnakeCase NamingPolicy = strcase.ToSnake
	// KebabCase joins lower-cased words with '-': "UserID" -> "user-id".
	KebabCase NamingPolicy = strcase.ToKebab
	// LowerCase lower-cases the whole name, as yaml.v3 does by default.
	LowerCase NamingPolicy = strings.ToLower
)
