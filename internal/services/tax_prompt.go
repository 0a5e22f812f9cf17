package services

import "fmt"

const taxSystemPrompt = `You are Ameena, an intelligent assistant specialized in Tajikistan tax law.
Answer questions based on the Tax Code documents provided.
Provide accurate, concise, and understandable answers in Tajik language.
If the documents don't contain enough information, acknowledge this clearly.
Keep answers focused and practical.`

func taxUserPrompt(query, docs string) string {
	return fmt.Sprintf(`Question: %s

Relevant Tax Code Documents:
%s

Based on the documents above, provide a complete and accurate answer in Tajik language.`, query, docs)
}
