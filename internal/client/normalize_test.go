package client

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexavo/conseil/internal/model/chat"
)

const testBase = "http://127.0.0.1:8000"

func TestDecodeSourceRecordAliases(t *testing.T) {
	cases := []struct {
		name   string
		record map[string]any
		want   chat.Source
	}{
		{
			name: "canonical names",
			record: map[string]any{
				"title": "Code monétaire", "document_name": "code.pdf",
				"page": float64(3), "score": 0.5, "source": "qdrant", "chunk_id": "c-9",
			},
			want: chat.Source{Title: "Code monétaire", DocumentName: "code.pdf", Page: 3, Score: 0.5, Origin: "qdrant", ChunkID: "c-9"},
		},
		{
			name: "aliased names",
			record: map[string]any{
				"document_title": "Droit bancaire", "filename": "droit.pdf",
				"page_number": "12", "relevance_score": "0.8", "chunk": "c-1",
			},
			want: chat.Source{Title: "Droit bancaire", DocumentName: "droit.pdf", Page: 12, Score: 0.8, ChunkID: "c-1"},
		},
		{
			name:   "unknown fields go to metadata",
			record: map[string]any{"title": "T", "file_exists": true},
			want:   chat.Source{Title: "T", Metadata: map[string]string{"file_exists": "true"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, decodeSourceRecord(tc.record))
		})
	}
}

func TestNormalizeSourcesDerivesURL(t *testing.T) {
	in := []chat.Source{{DocumentName: "code__monetaire et financier.pdf", Page: 4}}
	out := NormalizeSources(testBase, in)

	require.Equal(t, "code_monetaire et financier.pdf", out[0].DocumentName)
	require.Equal(t,
		testBase+"/api/v1/documents/code_monetaire%20et%20financier.pdf#page=4",
		out[0].URL,
	)
}

func TestNormalizeSourcesKeepsExplicitURL(t *testing.T) {
	in := []chat.Source{{DocumentName: "code.pdf", URL: "https://example.org/code.pdf"}}
	out := NormalizeSources(testBase, in)
	require.Equal(t, "https://example.org/code.pdf", out[0].URL)
}

func TestNormalizeSourcesClampsScore(t *testing.T) {
	in := []chat.Source{{Score: 1.7}, {Score: -0.3}}
	out := NormalizeSources(testBase, in)
	require.Equal(t, 1.0, out[0].Score)
	require.Equal(t, 0.0, out[1].Score)
}

func TestNormalizeSourcesCapsAtFivePreservingOrder(t *testing.T) {
	in := make([]chat.Source, 8)
	for i := range in {
		in[i] = chat.Source{ChunkID: string(rune('a' + i))}
	}
	out := NormalizeSources(testBase, in)

	require.Len(t, out, 5)
	for i, source := range out {
		require.Equal(t, string(rune('a'+i)), source.ChunkID)
	}
}

func TestNormalizeSourcesFixedPoint(t *testing.T) {
	in := []chat.Source{
		{Title: "Code monétaire", DocumentName: "code__monetaire.pdf", Page: 2, Score: 1.4},
		{DocumentName: "droit.pdf"},
		{Title: "Sans document"},
	}

	once := NormalizeSources(testBase, in)
	twice := NormalizeSources(testBase, once)
	require.Equal(t, once, twice)
}

func TestNormalizeSourcesEmpty(t *testing.T) {
	require.Empty(t, NormalizeSources(testBase, nil))
}
