package render

// overflowNotice is appended to the last interactive chunk when the rest of
// the report is delivered through the fan-out channels instead.
const overflowNotice = "\n\n...(余下内容已通过 Webhook 推送)"

// Paginate splits text into chunks of at most limit characters. Slicing is
// purely positional but operates on runes, so a chunk boundary can never
// fall inside a multi-byte sequence.
func Paginate(text string, limit int) []string {
	if limit <= 0 || text == "" {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	chunks := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}

// PaginateReport applies the market-report delivery policy: split at
// chunkSize, send at most maxChunks interactively, and when the report
// exceeds the secondary threshold flag on the last sent chunk that the
// remainder went out via the fan-out channels.
func PaginateReport(text string, chunkSize, secondary, maxChunks int) []string {
	chunks := Paginate(text, chunkSize)

	if maxChunks > 0 && len(chunks) > maxChunks {
		chunks = chunks[:maxChunks]
	}

	if secondary > 0 && len([]rune(text)) > secondary && len(chunks) > 0 {
		chunks[len(chunks)-1] += overflowNotice
	}

	return chunks
}
