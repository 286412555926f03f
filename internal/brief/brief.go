// Package brief renders the natural-language task description handed to
// the external review agent. The brief is the only channel through which
// the permission evaluator's verdict decision reaches the agent.
package brief

import (
	"bytes"
	"fmt"
	"text/template"
)

// Params holds the template variables for the task brief. Every field is
// produced by the orchestration core before the agent is spawned.
type Params struct {
	// RepoOwner and RepoName identify the repository under review.
	RepoOwner string
	RepoName  string

	// PRNumber is the pull request under review.
	PRNumber int

	// BaseRef and HeadRef are the merge-base and topic branch refs.
	BaseRef string
	HeadRef string

	// CanRequestChanges gates which verdict keyword the agent may use
	// when finalizing its review.
	CanRequestChanges bool

	// ActingLogin is the handle the agent's review will be attributed
	// to.
	ActingLogin string

	// TargetFiles optionally narrows the review to the named paths. An
	// empty slice means the whole diff is in scope.
	TargetFiles []string
}

// briefTmpl is the parsed task brief template, initialized once at package
// load.
var briefTmpl = template.Must(
	template.New("task-brief").Parse(briefTmplText),
)

// Render executes the task brief template with the given parameters.
func Render(p Params) (string, error) {
	var buf bytes.Buffer
	if err := briefTmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render task brief: %w", err)
	}

	return buf.String(), nil
}

// briefTmplText is the raw Go template for the agent task brief. It names
// the PR, the branch refs, the acting identity, and the verdict constraint
// the agent must honor.
const briefTmplText = `You are performing an automated code review of pull request #{{.PRNumber}} in {{.RepoOwner}}/{{.RepoName}}.

## Target

- Pull request: #{{.PRNumber}}
- Base ref: {{.BaseRef}}
- Head ref: {{.HeadRef}}
- Reviewing as: {{.ActingLogin}}
{{- if .TargetFiles}}

Restrict your review to the following files; do not comment on anything else:
{{- range .TargetFiles}}
- {{.}}
{{- end}}
{{- end}}

## Review Process

1. Fetch the head ref and inspect the diff against the base ref.
2. Review the changed code for bugs, logic errors, and security issues
   that are definitively present in the diff.
3. Leave line comments through your review tools; attach each comment to
   the exact line it concerns.
4. Finalize exactly one review when you are done.

## Verdict Constraint
{{if .CanRequestChanges}}
When finalizing your review you may use either the "request changes" or the
"comment only" verdict. Use "request changes" only for issues that must
block the merge.
{{- else}}
When finalizing your review you MUST use the "comment only" verdict. You
are not permitted to use "request changes" on this pull request, even for
blocking issues; describe their severity in the comment body instead.
{{- end}}

Do not approve the pull request. Do not push code. Your only output is the
finalized review.
`
