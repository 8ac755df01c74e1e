package redis

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrBadCommand = errors.New("bad command line")

// SplitCommand splits a command line into arguments. Double quoted arguments
// take \" \\ \n \r \t and \xHH escapes, single quoted ones are literal.
func SplitCommand(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quote   byte
		escaped bool
	)

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case escaped:
			escaped = false
			switch ch {
			case 'n':
				cur.WriteByte('\n')
			case 'r':
				cur.WriteByte('\r')
			case 't':
				cur.WriteByte('\t')
			case 'x':
				if i+2 >= len(line) {
					return nil, errors.Wrapf(ErrBadCommand, "short \\x escape at %d", i)
				}
				v, err := strconv.ParseUint(line[i+1:i+3], 16, 8)
				if err != nil {
					return nil, errors.Wrapf(ErrBadCommand, "bad \\x escape at %d", i)
				}
				cur.WriteByte(byte(v))
				i += 2
			default:
				cur.WriteByte(ch)
			}
		case quote == '"' && ch == '\\':
			escaped = true
		case quote != 0 && ch == quote:
			quote = 0
		case quote != 0:
			cur.WriteByte(ch)
		case ch == '"' || ch == '\'':
			quote = ch
			inArg = true
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteByte(ch)
			inArg = true
		}
	}

	if quote != 0 || escaped {
		return nil, errors.Wrap(ErrBadCommand, "unterminated quote")
	}
	if inArg {
		args = append(args, cur.String())
	}
	if len(args) == 0 {
		return nil, errors.Wrap(ErrBadCommand, "empty command")
	}
	return args, nil
}

// Quote makes s a single argument for SplitCommand.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(ch)
		}
	}
	b.WriteByte('"')
	return b.String()
}
