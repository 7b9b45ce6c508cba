package pipeline

import "fmt"

const ingestionPrompt = `You are a precise translator. The user asked a question in %s (%s, %s script).

Question: %s

Restate the question in clear, unambiguous English. Preserve every number,
unit, name and constraint exactly. Reply with the English restatement only.`

const reasoningPrompt = `Solve the following problem. Show your reasoning step by step, then state the result.

Problem: %s

End with a line of the form "Final answer: <result>".`

const criticPrompt = `You are a strict reviewer. Check the proposed solution for logical errors,
arithmetic mistakes and unjustified steps.

Problem: %s

Proposed solution:
%s

If the solution is correct, reply with exactly "VERDICT: PASS".
If it is wrong, reply with "VERDICT: FAIL" followed by one sentence naming the flaw.`

const revisionPrompt = `Your previous solution to a problem was rejected by a reviewer.

Problem: %s

Previous solution:
%s

Reviewer objection: %s

Produce a corrected solution that addresses the objection. Show your reasoning,
then end with a line of the form "Final answer: <result>".`

const synthesisPrompt = `You are a fluent %s (%s) writer. Rewrite the answer below as a natural,
culturally appropriate reply in %s. Do not translate word by word; transcreate.
Keep all numbers and facts exactly as given. Reply with the final answer only.

Answer: %s`

func formatIngestion(lang Language, query string) string {
	return fmt.Sprintf(ingestionPrompt, lang.Native, lang.Family, lang.Script, query)
}

func formatReasoning(problem string) string {
	return fmt.Sprintf(reasoningPrompt, problem)
}

func formatCritic(problem, solution string) string {
	return fmt.Sprintf(criticPrompt, problem, solution)
}

func formatRevision(problem, solution, objection string) string {
	return fmt.Sprintf(revisionPrompt, problem, solution, objection)
}

func formatSynthesis(lang Language, answer string) string {
	return fmt.Sprintf(synthesisPrompt, lang.Native, lang.Script, lang.Native, answer)
}
