package decompose

// decompositionPrompt is the prompt template for step decomposition.
const decompositionPrompt = `Break this goal into the smallest ordered list of atomic steps that solve it.

Goal:
%s

Return ONLY a JSON array of strings, one instruction per step (no other text):
["First instruction", "Second instruction using {step1}"]

Rules:
- Each step is an instruction, not an answer. Never solve the step yourself.
- Refer to the result of an earlier step with {stepN}, where N is its 1-based position, or {prev} for the step just before.
- Put arithmetic in its own step starting with "Calculate", e.g. "Calculate {step2} - {step1}".
- Ask for the current date or time with exactly "What is the current system time".
- Ask factual lookups to answer with the bare value only, e.g. "In what year was Go released? Answer with the year only."
- Use at most %d steps.`
