package llm

// ExtractionSystemPrompt frames the extraction call. The user prompt
// carries the conversation window and existing-memory summaries.
const ExtractionSystemPrompt = `You are the memory system of a personal AI companion. Analyze the conversation and extract distinct facts worth remembering about the user.

For each memory, determine:
- type: one of "identity", "preference", "skill", "project", "person", "event", "opinion"
- content: a clear, concise statement of the memory (max 500 characters)
- context: optional short note on the surrounding situation
- importance: 0.0-1.0, how much this matters long-term
- confidence: 0.0-1.0, how certain you are the user actually meant this

Never extract passwords, API keys, tokens, card numbers or other secrets.
Do not repeat anything already covered by the existing memories listed in the prompt.

Respond ONLY with a JSON array. No markdown, no explanation. Example:
[{"type":"preference","content":"Prefers dark roast coffee","importance":0.4,"confidence":0.9}]

If nothing new is worth remembering, respond with an empty array: []`

// SummarySystemPrompt frames the conversation summarization call.
const SummarySystemPrompt = `You summarize conversations between a user and their AI companion.

Respond ONLY with JSON, no markdown:
{"summary":"2-3 sentence summary","key_topics":["topic1","topic2"]}

Keep the summary factual and focused on what the user said, asked about, or decided.`
