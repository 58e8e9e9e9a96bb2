package provider

import (
	"strings"

	"gocode-grader/internal/models"
)

const (
	gradingMaxTokens    = 1024
	connectionMaxTokens = 10
)

const graderSystemPrompt = "You are an experienced JavaScript and DevOps interviewer reviewing a candidate's solution. " +
	"Assess correctness, code quality and edge cases. Reply in Markdown with a short verdict, " +
	"what works, what is missing, and one concrete improvement."

// GradingPrompt renders the review instructions. Challenge, section and code are embedded verbatim.
func GradingPrompt(req models.GradeRequest) models.Prompt {
	var b strings.Builder
	b.WriteString("# Section\n")
	b.WriteString(req.SectionTitle)
	b.WriteString("\n\n## Challenge\n")
	b.WriteString(req.ChallengeDescription)
	b.WriteString("\n\n## Submission\n```javascript\n")
	b.WriteString(req.Code)
	b.WriteString("\n```\n\nGrade this submission.")

	return models.Prompt{
		System:    graderSystemPrompt,
		User:      b.String(),
		MaxTokens: gradingMaxTokens,
	}
}

// ConnectionPrompt is the trivial prompt used to check that credentials work.
func ConnectionPrompt() models.Prompt {
	return models.Prompt{
		User:      `Respond with "OK".`,
		MaxTokens: connectionMaxTokens,
	}
}
