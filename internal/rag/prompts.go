package rag

// systemPrompt frames the synthesis call. The model must stay inside the
// retrieved narratives; anything it cannot ground there it must say so.
const systemPrompt = "You are a personal finance assistant. " +
	"Answer the user's question using ONLY the financial summaries provided as context. " +
	"Quote concrete figures from the summaries where possible. " +
	"If the context does not contain the answer, say that the available summaries do not cover it. " +
	"Do not invent numbers and do not mention the context mechanism itself."

// userPromptTemplate formats the retrieved narratives and the question
// into the user turn of the synthesis call.
const userPromptTemplate = "Financial summaries:\n\n%s\n\nQuestion: %s"

// noInformationAnswer is returned when neither retrieval nor live
// aggregation can ground an answer.
const noInformationAnswer = "I don't have enough information to answer that. " +
	"Try generating narratives for the relevant year first, or include a year in the question."
