package util

import (
	"io"
	"regexp"
	"strings"

	"github.com/valyala/fasttemplate"
)

// ParamStyleToColon converts the params in the string from style {param} to :param
func ParamStyleToColon(path string) string {
	return ExpandAddress(path, func(name string) string {
		return ":" + name
	})
}

// ParamStyleToBraces converts the params in the string from style :param to {param}
func ParamStyleToBraces(path string) string {
	re := regexp.MustCompile(`:([A-Za-z0-9_]+)`)
	return re.ReplaceAllString(path, `{$1}`)
}

// ExpandAddress replaces every {param} in the address
// with the value returned by fn.
func ExpandAddress(address string, fn func(name string) string) string {
	return fasttemplate.ExecuteFuncString(address, "{", "}", func(w io.Writer, tag string) (int, error) {
		return w.Write([]byte(fn(tag)))
	})
}

// AddressParameters returns the parameter names of an address
// in the order they appear.
func AddressParameters(address string) []string {
	var set OrderedSet
	ExpandAddress(address, func(name string) string {
		set.Add(name)
		return ""
	})
	return set.Items()
}

// NormalizeTopic strips the leading slash of an address and replaces
// the remaining slashes with the separator.
func NormalizeTopic(address, separator string) string {
	address = strings.TrimPrefix(address, "/")
	if separator == "" || separator == "/" {
		return address
	}
	return strings.ReplaceAll(address, "/", separator)
}
