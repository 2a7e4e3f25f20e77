package bot

import "strings"

// ParseArguments splits a command payload into its double-quoted arguments.
// `"SHOPEE EXPRESS" "YOUR AWB"` yields ["SHOPEE EXPRESS", "YOUR AWB"]. Segments between
// quotes that are blank are dropped, the rest are trimmed of spaces and stray quotes.
// An unquoted payload comes back as a single argument.
func ParseArguments(payload string) []string {
	args := []string{}
	for _, part := range strings.Split(payload, `"`) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		args = append(args, strings.Trim(part, " \t'\""))
	}
	return args
}
