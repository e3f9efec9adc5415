// Package glsl prepares shader source text before compilation.
package glsl

import (
	"fmt"
	"strings"
)

// Define returns src with "#define name value" inserted directly after the
// #version directive, or at the top when there is none. A later #ifndef
// guard in the source can supply a default.
func Define(src, name string, value any) string {
	line := fmt.Sprintf("#define %s %v\n", name, value)
	trimmed := strings.TrimLeft(src, " \t\r\n")
	if !strings.HasPrefix(trimmed, "#version") {
		return line + src
	}
	offset := len(src) - len(trimmed)
	end := strings.IndexByte(trimmed, '\n')
	if end < 0 {
		return src + "\n" + line
	}
	cut := offset + end + 1
	return src[:cut] + line + src[cut:]
}
