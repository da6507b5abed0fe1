package actions

/*
Presenter is the user-facing side of an action: confirmations for bulk or
destructive work and progress labels while it runs.
*/
type Presenter interface {
	Confirm(prompt string) bool
	Progress(label string)
}

/*
AutoConfirm confirms everything and drops progress. Useful for callers that
collected confirmation up front.
*/
type AutoConfirm struct{}

func (AutoConfirm) Confirm(string) bool { return true }
func (AutoConfirm) Progress(string)     {}
