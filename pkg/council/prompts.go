package council

import (
	"fmt"
	"strings"
)

// buildRolePrompt assembles the prompt dispatched to a single role:
// its own system prompt, any prepended dependency content, the task,
// and a brevity hint. Only the placeholder names in spec.md §4.8 are
// used.
func buildRolePrompt(role Role, task string, dependencyContent map[string]string) string {
	var b strings.Builder
	if role.Prompt != "" {
		b.WriteString(role.Prompt)
		b.WriteString("\n\n")
	}
	for _, dep := range role.DependsOn {
		if content, ok := dependencyContent[dep]; ok {
			b.WriteString(fmt.Sprintf("--- %s ---\n%s\n\n", dep, content))
		}
	}
	b.WriteString("Task: ")
	b.WriteString(task)
	b.WriteString("\n\nBe parsimonious in your response. Focus on key points without unnecessary elaboration.")
	return b.String()
}

// pairwiseComparisonPrompt builds the pairwise judging prompt per
// spec.md §4.4. The verdict markers are reproduced exactly; judges are
// instructed to conclude with exactly one.
func pairwiseComparisonPrompt(task, idA, idB, contentA, contentB string) string {
	return fmt.Sprintf(
		"Task given to all participants: %s\n\n"+
			"Compare Response %s and Response %s below. Judge them on accuracy, "+
			"completeness, and clarity with respect to the task.\n\n"+
			"Response %s:\n%s\n\n"+
			"Response %s:\n%s\n\n"+
			"Conclude your reply with exactly one of the following bracketed "+
			"tokens, and nothing else on that line: [[%s≫%s]], [[%s>%s]], "+
			"[[%s=%s]], [[%s>%s]], [[%s≫%s]].",
		task, idA, idB,
		idA, contentA,
		idB, contentB,
		idA, idB, idA, idB, idA, idB, idB, idA, idB, idA,
	)
}

// chairmanSynthesisPrompt builds the final synthesis prompt per
// spec.md §4.8: task, all successful responses (stage1), all review
// texts (stage2), and an instruction to produce a reasoned final
// answer.
func chairmanSynthesisPrompt(task, stage1Responses, stage2Reviews string) string {
	var b strings.Builder
	b.WriteString("You are the chairman of a council of advisors. Synthesize a single, ")
	b.WriteString("well-reasoned final answer to the task below, drawing on the ")
	b.WriteString("perspectives and the peer reviews provided.\n\n")
	b.WriteString("Task: ")
	b.WriteString(task)
	b.WriteString("\n\n--- Perspectives ---\n")
	b.WriteString(stage1Responses)
	if stage2Reviews != "" {
		b.WriteString("\n\n--- Peer reviews ---\n")
		b.WriteString(stage2Reviews)
	}
	b.WriteString("\n\nProvide the final, synthesized answer now.")
	return b.String()
}

// formatStage1Responses renders successful role results for the
// synthesis prompt, one "--- Perspective: name (model) ---" block per
// result, in the order given.
func formatStage1Responses(results []RoleResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(fmt.Sprintf("--- Perspective: %s (%s) ---\n%s", r.RoleName, r.Model, r.Content))
	}
	return b.String()
}

// formatStage2Reviews renders peer review texts grouped by judge for
// the synthesis prompt.
func formatStage2Reviews(peerReviewTexts map[string][]string, judgeOrder []string) string {
	var b strings.Builder
	first := true
	for _, judge := range judgeOrder {
		texts, ok := peerReviewTexts[judge]
		if !ok {
			continue
		}
		for _, t := range texts {
			if !first {
				b.WriteString("\n\n")
			}
			first = false
			b.WriteString(fmt.Sprintf("Review by %s: %s", judge, t))
		}
	}
	return b.String()
}
