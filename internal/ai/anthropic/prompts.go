package anthropic

import "fmt"

// Prompts instruct the model to answer with bare JSON so responses can be
// unmarshalled directly. Document text is truncated upstream, never here.

const systemPrompt = `You are a study assistant for students. You produce ` +
	`accurate, well-structured study materials from course documents. When ` +
	`asked for JSON, respond with only the JSON object, no prose and no ` +
	`markdown fences.`

func summaryPrompt(title, text string) string {
	return fmt.Sprintf(`Summarize the following study document titled %q.

Respond with a JSON object in exactly this shape:
{
  "summary": "3-6 paragraph summary of the document",
  "key_points": ["the most important points, 5 to 10 entries"]
}

Document:
%s`, title, text)
}

func flashcardsPrompt(title, text string) string {
	return fmt.Sprintf(`Create flashcards from the following study document titled %q.

Respond with a JSON object in exactly this shape:
{
  "cards": [
    {"front": "a question or term", "back": "the answer or definition"}
  ]
}

Create between 10 and 20 cards covering the document's key concepts.

Document:
%s`, title, text)
}

func quizPrompt(title, text string) string {
	return fmt.Sprintf(`Create a multiple-choice quiz from the following study document titled %q.

Respond with a JSON object in exactly this shape:
{
  "questions": [
    {
      "question": "the question text",
      "choices": ["four answer choices"],
      "answer_index": 0,
      "explanation": "one sentence explaining the correct answer"
    }
  ]
}

Create between 5 and 10 questions. answer_index is the zero-based index of
the correct choice.

Document:
%s`, title, text)
}

func chatPrompt(question, docContext string) string {
	if docContext == "" {
		return question
	}
	return fmt.Sprintf(`Answer the student's question using the document below
where relevant. If the document does not cover the question, say so and
answer from general knowledge.

Document:
%s

Question: %s`, docContext, question)
}
