package docspec

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	specLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `\d+(?:\.\d+)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][:,;]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	fileParser = participle.MustBuild[File](
		participle.Lexer(specLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// File is the root AST node; one file may declare several documents.
type File struct {
	Documents []*DocumentNode `parser:"Newline* ( @@ Newline* )*"`
}

// DocumentNode declares the layout of one document kind.
type DocumentNode struct {
	Pos     lexer.Position `parser:""`
	Kind    string         `parser:"'document' @Ident"`
	Entries []*Entry       `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Entry is either a table declaration or a key/value assignment.
type Entry struct {
	Table      *TableNode  `parser:"  @@"`
	Assignment *Assignment `parser:"| @@"`
}

// TableNode declares the columns of a named table.
type TableNode struct {
	Pos     lexer.Position `parser:""`
	Name    string         `parser:"'table' @Ident"`
	Columns []*ColumnNode  `parser:"'{' Newline* ( @@ Newline* )* '}'"`
}

// ColumnNode: column <key> "<header>" <fraction> [wrap|fit] [left|center|right]
type ColumnNode struct {
	Pos      lexer.Position `parser:""`
	Key      string         `parser:"'column' @Ident"`
	Header   StringLiteral  `parser:"@String"`
	Fraction float64        `parser:"@Number"`
	Flags    []string       `parser:"@Ident*"`
}

// Assignment uses colon syntax (key: value).
type Assignment struct {
	Pos   lexer.Position `parser:""`
	Key   string         `parser:"@Ident ':'"`
	Value *Value         `parser:"Newline* @@"`
}

// Value represents generic property values.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *float64       `parser:"| @Number"`
	List   *ListValue     `parser:"| @@"`
	Ident  *string        `parser:"| @Ident"`
}

// ListValue captures `[ ... ]` expressions.
type ListValue struct {
	Items []*Value `parser:"'[' Newline* ( @@ Newline* ( ',' Newline* @@ Newline* )* )? ']'"`
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// ParseFile 只做语法解析，不校验内容。
func ParseFile(name string, r io.Reader) (*File, error) {
	return fileParser.Parse(name, r)
}

// ParseFileString 与 ParseFile 相同，输入为字符串。
func ParseFileString(name, input string) (*File, error) {
	return fileParser.ParseString(name, input)
}
