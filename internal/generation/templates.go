package generation

import "strings"

// Prompt templates carry two fixed placeholders, {question} and
// {last_answer}. Deployments may override the generation templates through
// configuration; the repair instructions are part of the retry contract and
// are not configurable.

// DefaultFreshTemplate asks for a Cypher query from a question alone.
const DefaultFreshTemplate = `Generate a Cypher query that answers the following question using only the entities, relationships, and attributes defined in the ontology you were given.

Return the query in a ` + "```cypher" + ` code block. If the question cannot be answered from the ontology, reply with a single line starting with ERROR and a short reason.

Question: {question}`

// DefaultHistoryTemplate asks for a Cypher query in the context of a prior
// answer, for follow-up questions in a conversation.
const DefaultHistoryTemplate = `Generate a Cypher query that answers the following question using only the entities, relationships, and attributes defined in the ontology you were given. The question may refer to the previous answer in this conversation.

Previous answer: {last_answer}

Return the query in a ` + "```cypher" + ` code block. If the question cannot be answered from the ontology, reply with a single line starting with ERROR and a short reason.

Question: {question}`

const emptyResultTemplate = `The generated Cypher query returned an empty result set. If you are absolutely sure there is another way to formulate the query based on the ontology to answer the question, please try again. Otherwise, return the same Cypher query. The question to answer is: {question}`

const errorRepairTemplate = `The previous Cypher query you generated resulted in the following error: {error}. Please generate a new Cypher query that adheres to the ontology and avoids this error. The question to answer is: {question}`

func fillTemplate(template, question, lastAnswer string) string {
	out := strings.ReplaceAll(template, "{question}", question)
	return strings.ReplaceAll(out, "{last_answer}", lastAnswer)
}

func emptyResultPrompt(question string) string {
	return strings.ReplaceAll(emptyResultTemplate, "{question}", question)
}

func errorRepairPrompt(reason, question string) string {
	out := strings.ReplaceAll(errorRepairTemplate, "{error}", reason)
	return strings.ReplaceAll(out, "{question}", question)
}
