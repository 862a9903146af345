// Package shell runs the commands of the interactive cursor shell.
package shell

import (
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/alecthomas/participle/v2/lexer/stateful"

	"github.com/squareup/lazyrows/errors"
)

var (
	lex = stateful.MustSimple([]stateful.Rule{
		{`Ident`, "((?i)[a-zA-Z_][a-zA-Z_0-9]*)|`[^`]*`", nil},
		{`Number`, `[-+]?\d*\.?\d+([eE][-+]?\d+)?`, nil},
		{`String`, `'[^']*'|"[^"]*"`, nil},
		{`Punct`, `[-+*/%,.()=<>;]`, nil},
		{`Whitespace`, `\s+`, nil},
	})
	parser = participle.MustBuild(&AST{},
		participle.Lexer(lex),
		participle.CaseInsensitive("Ident"),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
		participle.Map(func(token lexer.Token) (lexer.Token, error) {
			token.Value = token.Value[1 : len(token.Value)-1]
			return token, nil
		}, "String"),
	)
	selectPrefix      = regexp.MustCompile(`(?i)^select\s+`)
	passthroughPrefix = regexp.MustCompile(`(?i)^(create|insert|update|delete|drop|alter)\s+`)
	deleteStatement   = regexp.MustCompile(`(?is)^delete\s+from\s+(\S+?)(?:\s+where\s+(.+?))?\s*;?\s*$`)
)

// Parse a shell command. When passthrough is set, write statements are not parsed and are returned for the
// source to execute.
func Parse(command string, passthrough bool) (*AST, error) {
	command = strings.TrimSpace(command)
	if selectPrefix.MatchString(command) {
		return &AST{Select: command}, nil
	}
	if passthrough && passthroughPrefix.MatchString(command) {
		return &AST{Passthrough: strings.TrimSuffix(command, ";")}, nil
	}
	if m := deleteStatement.FindStringSubmatch(command); m != nil {
		return &AST{Delete: &Delete{Table: unquote(m[1]), Selection: m[2]}}, nil
	}
	ast := &AST{}
	if err := parser.ParseString("", command, ast); err != nil {
		return nil, errors.MaybeAddStack(errors.NewInvalidCommandError(err.Error()))
	}
	return ast, nil
}

func unquote(ident string) string {
	if len(ident) >= 2 && strings.HasPrefix(ident, "`") && strings.HasSuffix(ident, "`") {
		return ident[1 : len(ident)-1]
	}
	return ident
}
