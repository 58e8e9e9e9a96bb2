package ollama

import "strings"

const codeFence = "```"

// Normalize applies the repair strategy of the model's family to one text fragment.
// It keeps no state between calls.
func Normalize(model, fragment string) string {
	p := ProfileFor(model)
	if !p.RequiresRepair {
		return fragment
	}
	return Repair(p.Repair, fragment)
}

// Repair closes Markdown left open at the end of text.
func Repair(strategy RepairStrategy, text string) string {
	switch strategy {
	case RepairCodeAware:
		return closeCodeFence(text)
	case RepairTolerant:
		return closeDanglingMarkers(text)
	default:
		return text
	}
}

func closeCodeFence(text string) string {
	if strings.Count(text, codeFence)%2 == 0 {
		return text
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text + codeFence
}

func closeDanglingMarkers(text string) string {
	if strings.Count(text, codeFence)%2 == 1 {
		return closeCodeFence(text)
	}

	prose := stripFencedBlocks(text)
	var suffix strings.Builder

	if strings.Count(prose, "`")%2 == 1 {
		suffix.WriteString("`")
	}

	withoutBold := strings.ReplaceAll(stripBullets(prose), "**", "")
	if strings.Count(withoutBold, "*")%2 == 1 {
		suffix.WriteString("*")
	}

	if strings.Count(prose, "**")%2 == 1 {
		suffix.WriteString("**")
	}

	return text + suffix.String()
}

// stripFencedBlocks drops closed ``` blocks so markers inside code are not counted.
func stripFencedBlocks(text string) string {
	parts := strings.Split(text, codeFence)
	var b strings.Builder
	for i, part := range parts {
		if i%2 == 0 {
			b.WriteString(part)
		}
	}
	return b.String()
}

// stripBullets removes "* " list markers, which are not italics.
func stripBullets(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "* ") {
			lines[i] = trimmed[2:]
		}
	}
	return strings.Join(lines, "\n")
}
