// File: internal/retrieval/retriever.go
// Description: An in-process policy retriever. Documents are chunked with
// overlap at load time and ranked at query time by lexical term overlap. It
// fills the semantic-search seam behind schemas.Retriever; swapping in a real
// vector store only means replacing this implementation.

package retrieval

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/q0rren/attendant/api/schemas"
	"github.com/q0rren/attendant/internal/config"
)

// chunk is one indexed slice of a policy document.
type chunk struct {
	content    string
	source     string
	policyType string
	chunkID    int
	terms      map[string]int
}

// PolicyRetriever implements schemas.Retriever over an in-memory chunk index.
type PolicyRetriever struct {
	cfg    config.RetrievalConfig
	logger *zap.Logger
	chunks []chunk
}

var _ schemas.Retriever = (*PolicyRetriever)(nil)

// New builds the retriever and loads its corpus: *.txt files from the
// configured policy directory when it exists, the embedded samples otherwise.
func New(cfg config.RetrievalConfig, logger *zap.Logger) (*PolicyRetriever, error) {
	r := &PolicyRetriever{cfg: cfg, logger: logger.Named("retrieval")}

	docs, err := r.loadDocuments()
	if err != nil {
		return nil, err
	}
	for name, content := range docs {
		policyType := strings.ReplaceAll(strings.TrimSuffix(name, ".txt"), "_", " ")
		for i, part := range chunkText(content, cfg.ChunkSize, cfg.ChunkOverlap) {
			r.chunks = append(r.chunks, chunk{
				content:    part,
				source:     name,
				policyType: policyType,
				chunkID:    i,
				terms:      termFrequencies(part),
			})
		}
	}
	// Stable index order regardless of map iteration.
	sort.Slice(r.chunks, func(i, j int) bool {
		if r.chunks[i].source != r.chunks[j].source {
			return r.chunks[i].source < r.chunks[j].source
		}
		return r.chunks[i].chunkID < r.chunks[j].chunkID
	})

	r.logger.Info("Policy corpus loaded", zap.Int("documents", len(docs)), zap.Int("chunks", len(r.chunks)))
	return r, nil
}

func (r *PolicyRetriever) loadDocuments() (map[string]string, error) {
	dir := r.cfg.PolicyDir
	if dir == "" {
		return samplePolicies, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Debug("Policy directory not found, using embedded samples", zap.String("dir", dir))
			return samplePolicies, nil
		}
		return nil, fmt.Errorf("reading policy dir %s: %w", dir, err)
	}

	docs := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading policy file %s: %w", e.Name(), err)
		}
		docs[e.Name()] = string(data)
	}
	if len(docs) == 0 {
		return samplePolicies, nil
	}
	return docs, nil
}

// Retrieve returns the topK best-matching chunks for the query, best first.
// An empty result is a valid answer, not an error.
func (r *PolicyRetriever) Retrieve(query string, topK int) []schemas.PolicySnippet {
	if topK <= 0 {
		topK = 3
	}
	queryTerms := termFrequencies(query)
	if len(queryTerms) == 0 {
		return nil
	}

	type scored struct {
		c     chunk
		score float64
	}
	var hits []scored
	for _, c := range r.chunks {
		if s := overlapScore(queryTerms, c.terms); s > 0 {
			hits = append(hits, scored{c, s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > topK {
		hits = hits[:topK]
	}

	out := make([]schemas.PolicySnippet, 0, len(hits))
	for _, h := range hits {
		out = append(out, schemas.PolicySnippet{
			Content:        h.c.content,
			Source:         h.c.source,
			PolicyType:     h.c.policyType,
			RelevanceScore: h.score,
			ChunkID:        h.c.chunkID,
		})
	}
	return out
}

// FormatContext renders snippets for prompt consumption, appending conflict
// warnings when retrieved policies disagree.
func FormatContext(snippets []schemas.PolicySnippet) string {
	if len(snippets) == 0 {
		return "No relevant policies found."
	}

	var b strings.Builder
	b.WriteString("RELEVANT POLICIES:\n\n")
	for i, s := range snippets {
		fmt.Fprintf(&b, "%d. From %s (relevance: %.2f):\n   %s\n\n", i+1, s.PolicyType, s.RelevanceScore, s.Content)
	}

	if conflicts := DetectConflicts(snippets); len(conflicts) > 0 {
		b.WriteString("POLICY CONFLICTS DETECTED:\n")
		for _, msg := range conflicts {
			fmt.Fprintf(&b, "   - %s\n", msg)
		}
	}
	return b.String()
}

// DetectConflicts flags likely contradictions between snippets from different
// source documents. Keyword-based; cheap and intentionally rough.
func DetectConflicts(snippets []schemas.PolicySnippet) []string {
	sources := map[string]bool{}
	for _, s := range snippets {
		sources[s.Source] = true
	}
	if len(sources) < 2 {
		return nil
	}

	refundKeywords := []string{"refund", "no refund", "not eligible"}
	delayKeywords := []string{"48 hours", "7 days", "immediate"}

	var refundSources []string
	delayMentions := 0
	for _, s := range snippets {
		lower := strings.ToLower(s.Content)
		for _, kw := range refundKeywords {
			if strings.Contains(lower, kw) {
				refundSources = append(refundSources, s.Source)
				break
			}
		}
		for _, kw := range delayKeywords {
			if strings.Contains(lower, kw) {
				delayMentions++
				break
			}
		}
	}

	var conflicts []string
	if len(refundSources) > 1 {
		conflicts = append(conflicts, fmt.Sprintf("Potentially conflicting refund policies from %v", refundSources))
	}
	if delayMentions > 1 {
		conflicts = append(conflicts, "Different delay thresholds mentioned across policies")
	}
	return conflicts
}

// chunkText splits text into overlapping word windows.
func chunkText(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if size <= 0 {
		size = 500
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	for i := 0; i < len(words); i += size - overlap {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

// termFrequencies lowercases and counts alphanumeric terms.
func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?()[]\"'-")
		if len(w) < 3 {
			continue
		}
		freq[w]++
	}
	return freq
}

// overlapScore is the fraction of query terms present in the chunk, with a
// small bonus for repeated matches. Result is clamped to 1.0.
func overlapScore(query, doc map[string]int) float64 {
	matched := 0
	bonus := 0.0
	for term := range query {
		if n, ok := doc[term]; ok {
			matched++
			if n > 1 {
				bonus += 0.02
			}
		}
	}
	if matched == 0 {
		return 0
	}
	score := float64(matched)/float64(len(query)) + bonus
	if score > 1.0 {
		score = 1.0
	}
	return score
}
