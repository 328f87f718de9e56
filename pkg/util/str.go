package util

import (
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
)

var initialisms = map[string]bool{
	"ACL": true, "API": true, "ASCII": true, "CPU": true, "CSS": true, "DNS": true,
	"EOF": true, "GUID": true, "HTML": true, "HTTP": true, "HTTPS": true, "ID": true,
	"IP": true, "JSON": true, "LHS": true, "QPS": true, "RAM": true, "RHS": true,
	"RPC": true, "SLA": true, "SMTP": true, "SQL": true, "SSH": true, "TCP": true,
	"TLS": true, "TTL": true, "UDP": true, "UI": true, "UID": true, "UUID": true,
	"URI": true, "URL": true, "UTF8": true, "VM": true, "XML": true, "XMPP": true,
	"XSRF": true, "XSS": true, "NATS": true, "AMQP": true, "MQTT": true,
}

var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
}

// ToGoName converts any string to an exported Go identifier,
// e.g. "user_id" becomes "UserID" and "orders/{action}" "OrdersAction".
func ToGoName(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, s)

	camel := strcase.ToCamel(cleaned)
	if camel == "" {
		return ""
	}

	words := splitWords(camel)
	for i, w := range words {
		if up := strings.ToUpper(w); initialisms[up] {
			words[i] = up
		}
	}

	name := strings.Join(words, "")
	if unicode.IsDigit(rune(name[0])) {
		name = "N" + name
	}
	return name
}

// ToGoVarName is like ToGoName, but the result is unexported.
func ToGoVarName(s string) string {
	name := ToGoName(s)
	if name == "" {
		return ""
	}

	words := splitWords(name)
	if initialisms[words[0]] {
		words[0] = strings.ToLower(words[0])
	} else {
		words[0] = strcase.ToLowerCamel(words[0])
	}

	name = strings.Join(words, "")
	if goKeywords[name] {
		name += "_"
	}
	return name
}

// ToGoPackageName creates a package name from the last
// element of a path.
func ToGoPackageName(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i != -1 {
		p = p[i+1:]
	}

	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, p)

	if name == "" || unicode.IsDigit(rune(name[0])) || goKeywords[name] {
		name = "gen" + name
	}
	return name
}

// splitWords splits a camel case string at upper case letters.
func splitWords(s string) []string {
	var words []string
	start := 0
	runes := []rune(s)
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && !unicode.IsUpper(runes[i-1]) {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	return append(words, string(runes[start:]))
}

// OrderedSet is a set of strings that keeps the insertion order.
type OrderedSet struct {
	items []string
	seen  map[string]bool
}

// Add adds values that are not in the set yet.
func (s *OrderedSet) Add(vals ...string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	for _, v := range vals {
		if s.seen[v] {
			continue
		}
		s.seen[v] = true
		s.items = append(s.items, v)
	}
}

// Items returns the values in insertion order.
func (s *OrderedSet) Items() []string {
	return append([]string(nil), s.items...)
}

// Len returns the number of values.
func (s *OrderedSet) Len() int {
	return len(s.items)
}
