package lexer

import "fmt"

// TokenType enumerates the rule grammar's terminal categories.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	IDENT
	INT
	FLOAT
	STRING
	REGEX
	RANGE
	VARIABLE   // %name
	CUSTOMMSG  // <<...>>

	KwLet
	KwRule
	KwWhen
	KwSome
	KwThis
	KwNot
	KwOr
	KwIn
	KwExists
	KwEmpty
	KwIsString
	KwIsList
	KwIsStruct
	KwIsBool
	KwIsInt
	KwIsFloat
	KwIsNull
	KwNull
	KwTrue
	KwFalse
	KwModule

	Dot
	DoubleColon
	Comma
	Colon
	LBrace
	RBrace
	LBracket
	RBracket
	LParen
	RParen
	Asterisk
	Assign // =
	Walrus // :=
	Eq     // ==
	Ne     // !=
	Le     // <=
	Ge     // >=
	Lt     // <
	Gt     // >
)

var tokenNames = map[TokenType]string{
	EOF: "EOF", ILLEGAL: "ILLEGAL",
	IDENT: "IDENT", INT: "INT", FLOAT: "FLOAT", STRING: "STRING",
	REGEX: "REGEX", RANGE: "RANGE", VARIABLE: "VARIABLE", CUSTOMMSG: "CUSTOMMSG",
	KwLet: "let", KwRule: "rule", KwWhen: "when", KwSome: "SOME", KwThis: "this",
	KwNot: "not", KwOr: "or", KwIn: "IN", KwExists: "EXISTS", KwEmpty: "EMPTY",
	KwIsString: "IS_STRING", KwIsList: "IS_LIST", KwIsStruct: "IS_STRUCT",
	KwIsBool: "IS_BOOL", KwIsInt: "IS_INT", KwIsFloat: "IS_FLOAT", KwIsNull: "IS_NULL",
	KwNull: "null", KwTrue: "true", KwFalse: "false", KwModule: "MODULE",
	Dot: ".", DoubleColon: "::", Comma: ",", Colon: ":",
	LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]", LParen: "(", RParen: ")",
	Asterisk: "*", Assign: "=", Walrus: ":=",
	Eq: "==", Ne: "!=", Le: "<=", Ge: ">=", Lt: "<", Gt: ">",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// keywords maps case-sensitive spellings the grammar treats as reserved
// words to their token type. Some keywords accept two casings.
var keywords = map[string]TokenType{
	"let": KwLet, "rule": KwRule, "when": KwWhen,
	"SOME": KwSome, "some": KwSome,
	"this": KwThis, "not": KwNot, "or": KwOr,
	"IN": KwIn, "EXISTS": KwExists, "EMPTY": KwEmpty,
	"IS_STRING": KwIsString, "IS_LIST": KwIsList, "IS_STRUCT": KwIsStruct,
	"IS_BOOL": KwIsBool, "IS_INT": KwIsInt, "IS_FLOAT": KwIsFloat, "IS_NULL": KwIsNull,
	"null": KwNull, "NULL": KwNull,
	"true": KwTrue, "True": KwTrue,
	"false": KwFalse, "False": KwFalse,
	"MODULE": KwModule,
}

// Token is a single lexical unit with 1-based source position.
type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Type, t.Value, t.Line, t.Column)
}
