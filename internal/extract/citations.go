package extract

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/codevakure/lonb/internal/kb"
	"github.com/codevakure/lonb/internal/schema"
)

// chunkRefPattern matches references emitted by the citation prompt variant.
var chunkRefPattern = regexp.MustCompile(`^CHUNK_(\d+)$`)

// ParseWithCitations parses one citation-variant response. The extracted
// data goes through the same validation and normalization as the plain
// variant; field citations resolve back into the retrieved chunks.
func (p *Parser) ParseWithCitations(def *schema.Definition, raw string, chunks []kb.Chunk) (map[string]any, map[string][]kb.Chunk, error) {
	envelope, err := p.parseObject(raw)
	if err != nil {
		return nil, nil, err
	}

	extracted, ok := envelope["extracted_data"].(map[string]any)
	if !ok {
		p.logger.Error("citation response missing extracted_data object", "schema", def.Name)
		return nil, nil, fmt.Errorf("%w: missing extracted_data object", ErrParse)
	}
	if err := p.validate(def, extracted); err != nil {
		return nil, nil, err
	}

	fieldCitations := p.resolveCitations(envelope["field_citations"], chunks)
	return normalizeToSchema(def, extracted), fieldCitations, nil
}

// resolveCitations maps CHUNK_n references to the chunks they name.
// Malformed references and indexes outside the retrieval result are dropped
// silently; a model that cites badly still yields its extracted data.
func (p *Parser) resolveCitations(value any, chunks []kb.Chunk) map[string][]kb.Chunk {
	raw, ok := value.(map[string]any)
	if !ok {
		return map[string][]kb.Chunk{}
	}

	resolved := make(map[string][]kb.Chunk, len(raw))
	for field, refs := range raw {
		list, ok := refs.([]any)
		if !ok {
			continue
		}
		var cited []kb.Chunk
		for _, ref := range list {
			refStr, ok := ref.(string)
			if !ok {
				continue
			}
			match := chunkRefPattern.FindStringSubmatch(refStr)
			if match == nil {
				p.logger.Debug("dropping malformed chunk reference", "field", field, "ref", refStr)
				continue
			}
			n, err := strconv.Atoi(match[1])
			if err != nil || n < 1 || n > len(chunks) {
				p.logger.Debug("dropping out-of-range chunk reference", "field", field, "ref", refStr)
				continue
			}
			cited = append(cited, chunks[n-1])
		}
		if len(cited) > 0 {
			resolved[field] = cited
		}
	}
	return resolved
}
