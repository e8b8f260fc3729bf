package shader

import (
	"regexp"
	"strings"
)

var (
	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)
)

// parseEntryPoint extracts the entry point function name matched by re from WGSL source.
// Returns an empty string if no matching entry point is found.
//
// Parameters:
//   - source: the WGSL source code string
//   - re: vertexEntryRegex or fragmentEntryRegex
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(source string, re *regexp.Regexp) string {
	if match := re.FindStringSubmatch(stripComments(source)); match != nil {
		return match[1]
	}
	return ""
}

// stripComments removes block and line comments from WGSL source.
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

// stripLineComments removes single-line // comments from WGSL source.
func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// stripBlockComments removes /* ... */ comments from WGSL source. WGSL block comments nest.
func stripBlockComments(source string) string {
	var sb strings.Builder
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) && source[i] == '/' && source[i+1] == '*' {
			depth++
			i++
			continue
		}
		if depth > 0 && i+1 < len(source) && source[i] == '*' && source[i+1] == '/' {
			depth--
			i++
			continue
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
