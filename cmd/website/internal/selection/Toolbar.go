package selection

/*
Toolbar is what the selection controls should look like for a given state.
SelectAllLabel names the action the next click performs.
*/
type Toolbar struct {
	Mode                   Mode
	SelectedCount          int
	SelectedLabel          string
	PrimaryEnabled         bool
	SelectAllLabel         string
	ShowUpload             bool
	ShowSelectModeButton   bool
	ShowDownloadModeButton bool
	ShowDeleteSection      bool
	ShowDownloadSection    bool
}

func (t Toolbar) IsSelecting() bool {
	return t.Mode != ModeNormal
}
