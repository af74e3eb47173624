package client

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lexavo/conseil/internal/model/chat"
)

// maxSourcesPerMessage caps citations per reply; server order is preserved
// and treated as relevance-descending.
const maxSourcesPerMessage = 5

// Alias tables for the inconsistently named fields in raw source records.
var (
	titleAliases    = []string{"title", "document_title", "name"}
	documentAliases = []string{"document_name", "document", "filename", "file_name"}
	urlAliases      = []string{"url", "link"}
	pageAliases     = []string{"page", "page_number"}
	originAliases   = []string{"source", "origin"}
	scoreAliases    = []string{"score", "relevance", "relevance_score"}
	chunkAliases    = []string{"chunk_id", "chunk"}
)

// decodeSourceRecord folds one raw record into the canonical Source shape.
// Fields not covered by the alias tables land in Metadata.
func decodeSourceRecord(record map[string]any) chat.Source {
	consumed := make(map[string]bool)

	lookupString := func(aliases []string) string {
		for _, key := range aliases {
			if value, ok := record[key]; ok {
				consumed[key] = true
				if s, ok := value.(string); ok && s != "" {
					return s
				}
			}
		}
		return ""
	}

	lookupInt := func(aliases []string) int {
		for _, key := range aliases {
			if value, ok := record[key]; ok {
				consumed[key] = true
				switch v := value.(type) {
				case float64:
					return int(v)
				case string:
					if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
						return n
					}
				}
			}
		}
		return 0
	}

	lookupFloat := func(aliases []string) float64 {
		for _, key := range aliases {
			if value, ok := record[key]; ok {
				consumed[key] = true
				switch v := value.(type) {
				case float64:
					return v
				case string:
					if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
						return f
					}
				}
			}
		}
		return 0
	}

	source := chat.Source{
		Title:        lookupString(titleAliases),
		DocumentName: lookupString(documentAliases),
		URL:          lookupString(urlAliases),
		Page:         lookupInt(pageAliases),
		Origin:       lookupString(originAliases),
		Score:        lookupFloat(scoreAliases),
		ChunkID:      lookupString(chunkAliases),
	}

	for key, value := range record {
		if consumed[key] || value == nil {
			continue
		}
		if source.Metadata == nil {
			source.Metadata = make(map[string]string)
		}
		source.Metadata[key] = fmt.Sprintf("%v", value)
	}

	return source
}

// NormalizeSources brings a source list into canonical form: scores clamped
// to [0,1], document URLs derived when missing, and the list capped at
// maxSourcesPerMessage. The function is a fixed point: normalizing an
// already-normalized list returns it unchanged.
func NormalizeSources(baseURL string, sources []chat.Source) []chat.Source {
	if len(sources) > maxSourcesPerMessage {
		sources = sources[:maxSourcesPerMessage]
	}

	normalized := make([]chat.Source, len(sources))
	for i, source := range sources {
		if source.Score < 0 {
			source.Score = 0
		} else if source.Score > 1 {
			source.Score = 1
		}
		if source.DocumentName != "" {
			source.DocumentName = normalizeDocumentName(source.DocumentName)
		}
		if source.URL == "" && source.DocumentName != "" {
			source.URL = documentURL(baseURL, source.DocumentName, source.Page)
		}
		normalized[i] = source
	}
	return normalized
}

// normalizeDocumentName collapses double underscores; the indexing pipeline
// doubles them but the files on disk carry single ones.
func normalizeDocumentName(name string) string {
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	return name
}

// documentURL builds a fetchable link to the cited document, with a page
// fragment when the page is known.
func documentURL(baseURL, documentName string, page int) string {
	link := strings.TrimRight(baseURL, "/") + documentsPath + "/" + url.PathEscape(documentName)
	if page > 0 {
		link += "#page=" + strconv.Itoa(page)
	}
	return link
}
