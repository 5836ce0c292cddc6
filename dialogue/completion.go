package dialogue

import "github.com/tbxark/appraisalagent/form"

// CompletionMessage is the reply sent when every field is filled.
func CompletionMessage(p form.Project) string {
	return "Great! All project details have been captured successfully. Here's your complete self-appraisal entry:\n\n" +
		form.Summary(p)
}
