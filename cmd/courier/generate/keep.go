package generate

import (
	"bytes"
	"fmt"
	"regexp"
)

// Code between a "courier:keep <tag>" and a "courier:endkeep" line
// of an existing file survives regeneration if the newly generated
// file has a block with the same tag.
var keepStart = regexp.MustCompile(`courier:keep\s+([a-zA-Z0-9_]+)\b`)

var keepEnd = []byte("courier:endkeep")

type keepBlock struct {
	tag string

	// code of the block including the marker lines.
	code []byte
}

// keepAction is what happens to an existing block that has no
// place in the generated file.
type keepAction int

const (
	keepIgnore keepAction = iota
	keepBackup
	keepRetag
)

// keepResolver decides about an obsolete block, free contains the
// tags of the generated file that are not used by the existing file.
// The returned tag is only used for keepRetag.
type keepResolver func(tag string, free []string) (keepAction, string, error)

func keepBlocks(data []byte) ([]*keepBlock, error) {
	var blocks []*keepBlock
	seen := make(map[string]bool)

	var current *keepBlock
	for _, line := range bytes.SplitAfter(data, []byte("\n")) {
		found := keepStart.FindSubmatch(line)

		if current == nil {
			if found == nil {
				continue
			}
			tag := string(found[1])
			if seen[tag] {
				return nil, fmt.Errorf("courier:keep %v is used more than once", tag)
			}
			seen[tag] = true

			current = &keepBlock{tag: tag}
			current.code = append(current.code, line...)
			continue
		}

		if found != nil {
			return nil, fmt.Errorf("courier:keep %v has missing associated courier:endkeep", current.tag)
		}

		current.code = append(current.code, line...)

		if bytes.Contains(line, keepEnd) {
			blocks = append(blocks, current)
			current = nil
		}
	}

	if current != nil {
		return nil, fmt.Errorf("courier:keep %v has missing associated courier:endkeep", current.tag)
	}

	return blocks, nil
}

// mergeKeep replaces the keep blocks of the generated file with the
// blocks of the existing one. The obsolete blocks the resolver chose
// to back up are returned separately.
func mergeKeep(existing, generated []byte, resolve keepResolver) (merged, obsolete []byte, err error) {
	genBlocks, err := keepBlocks(generated)
	if err != nil {
		return nil, nil, fmt.Errorf("generated code: %w", err)
	}

	exBlocks, err := keepBlocks(existing)
	if err != nil {
		return nil, nil, err
	}

	if len(exBlocks) == 0 {
		return generated, nil, nil
	}

	code := make(map[string][]byte, len(genBlocks))
	for _, b := range genBlocks {
		code[b.tag] = b.code
	}

	exTags := make(map[string]bool, len(exBlocks))
	for _, b := range exBlocks {
		exTags[b.tag] = true
	}

	var free []string
	for _, b := range genBlocks {
		if !exTags[b.tag] {
			free = append(free, b.tag)
		}
	}

	for _, b := range exBlocks {
		if _, ok := code[b.tag]; ok {
			code[b.tag] = b.code
			continue
		}

		action, newTag, err := resolve(b.tag, free)
		if err != nil {
			return nil, nil, err
		}

		switch action {
		case keepBackup:
			obsolete = append(obsolete, b.code...)
		case keepRetag:
			idx := indexOf(free, newTag)
			if idx < 0 {
				return nil, nil, fmt.Errorf("courier:keep %v cannot be moved to %v", b.tag, newTag)
			}
			free = append(free[:idx], free[idx+1:]...)
			code[newTag] = retag(b.code, newTag)
		}
	}

	out := &bytes.Buffer{}
	inBlock := false
	for _, line := range bytes.SplitAfter(generated, []byte("\n")) {
		if inBlock {
			if bytes.Contains(line, keepEnd) {
				inBlock = false
			}
			continue
		}

		if found := keepStart.FindSubmatch(line); found != nil {
			out.Write(code[string(found[1])])
			inBlock = true
			continue
		}

		out.Write(line)
	}

	return out.Bytes(), obsolete, nil
}

func retag(code []byte, newTag string) []byte {
	end := bytes.IndexByte(code, '\n')
	if end < 0 {
		end = len(code)
	}

	first := keepStart.ReplaceAll(code[:end], []byte("courier:keep "+newTag))

	res := make([]byte, 0, len(code)+len(newTag))
	res = append(res, first...)
	return append(res, code[end:]...)
}

func indexOf(vals []string, val string) int {
	for i, v := range vals {
		if v == val {
			return i
		}
	}
	return -1
}
