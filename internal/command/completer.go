package command

import "strings"

// Complete returns tab-completion candidates for the partially typed
// command. args holds the completed words; partial is the word being typed.
func (h *Handler) Complete(args []string, partial string) []string {
	var candidates []string
	switch len(args) {
	case 0:
		candidates = append(h.PlatformNames(), "set")
	case 1:
		if strings.EqualFold(args[0], "set") {
			candidates = []string{"email"}
		} else {
			candidates = h.Models(args[0])
		}
	default:
		return nil
	}
	return filterPrefix(candidates, partial)
}

func filterPrefix(candidates []string, partial string) []string {
	if partial == "" {
		return candidates
	}
	lower := strings.ToLower(partial)
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), lower) {
			out = append(out, c)
		}
	}
	return out
}
