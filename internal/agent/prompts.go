package agent

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an autonomous quiz-solving agent. You are given one quiz
question at a time. Each question describes a task (data analysis, web
scraping, API calls, computation) and must be answered before a strict
time limit. You work step by step with tools and always reply with a
single strict JSON object, no markdown, no commentary outside the JSON.`

const planningTemplate = `A new quiz question has been loaded.

Question page URL: %s

Question content:
%s

Relevant links on the page:
%s

Available tools:
%s

Write a short plan: what the question asks for, which data you need,
which tools you will use and in what order. Reply with strict JSON:
{"plan": "<your plan>", "answer_format": "<expected type of the final answer, e.g. number, string, list>"}`

const stepTemplate = `You are solving this quiz question step by step.

Question content:
%s

Your plan:
%s

Progress so far:
%s

Time remaining: %.0f seconds.

Available tools:
%s

Decide the single next action. Reply with strict JSON, one of:
{"action": "tool", "tool": "<tool name>", "args": {<tool arguments>}, "reasoning": "<one sentence>"}
{"action": "answer", "answer": <final answer value>, "reasoning": "<one sentence>"}

Rules:
- Exactly one tool call per step.
- "answer" must match the format the question asks for. Numbers as JSON
  numbers, not strings.
- If little time remains, answer with your best estimate now.`

const finalizeTemplate = `Time is almost up for this quiz question. You must answer NOW.

Question content:
%s

Progress so far:
%s

Based on everything above, give your best final answer. If you computed
a value, use it; otherwise give your best estimate. Reply with strict JSON:
{"answer": <final answer value>, "reasoning": "<one sentence>"}`

func planningPrompt(pageURL, question string, links []string, toolDocs string) string {
	linkList := "(none)"
	if len(links) > 0 {
		if len(links) > 20 {
			links = links[:20]
		}
		linkList = "- " + strings.Join(links, "\n- ")
	}
	return fmt.Sprintf(planningTemplate, pageURL, question, linkList, toolDocs)
}

func stepPrompt(question, plan, progress string, remainingSeconds float64, toolDocs string) string {
	return fmt.Sprintf(stepTemplate, question, plan, progress, remainingSeconds, toolDocs)
}

func finalizePrompt(question, progress string) string {
	return fmt.Sprintf(finalizeTemplate, question, progress)
}
