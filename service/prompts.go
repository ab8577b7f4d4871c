package service

const (
	ocrInstruction = "Extract all text from this document exactly as written. " +
		"Do not translate, do not paraphrase, do not summarize and do not add commentary. " +
		"Keep the original reading order and line breaks. Return only the extracted text."

	summaryInstruction = "Write an abstractive summary of this document in at most 120 words, " +
		"as a single paragraph. Paraphrase in your own words instead of copying sentences. " +
		"Write the summary in the same language as the document. Return only the summary."

	transcribeInstruction = "Transcribe this audio exactly as spoken, in its original language. " +
		"Return only the transcript without any commentary."

	answerSystemInstruction = "You answer questions using only the provided context from the organization's documents. " +
		"Answer in the language of the question. " +
		"If the context does not contain the answer, reply exactly with: " + NoRelevantAnswer

	// NoRelevantAnswer is the reply when retrieved context cannot answer the query.
	NoRelevantAnswer = "No relevant answer was found in the documents."

	// AnswerFallback is returned when the answer model fails.
	AnswerFallback = "The answer could not be generated right now. Please review the search results."
)
