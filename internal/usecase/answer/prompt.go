package answer

import "fmt"

// promptTemplate grounds the model on retrieved references. The context block
// is wrapped in <context> tags so instructions and material stay separable.
const promptTemplate = `You are a study assistant that answers questions from reference material.

<context>
%s
</context>

Question: %s

Answer the question using the reference material above. If the material is not sufficient, say so honestly and give a best-effort answer from general knowledge. Cite the reference content you used. Answer in the same language as the question.`

// ComposePrompt renders the fixed answering prompt for a query and its
// retrieved context. Pure string assembly.
func ComposePrompt(query, context string) string {
	return fmt.Sprintf(promptTemplate, context, query)
}
