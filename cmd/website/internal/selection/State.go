package selection

import (
	"fmt"
	"sort"
)

var (
	ErrNotSelecting = fmt.Errorf("not in a selection mode")
)

type Mode int

const (
	ModeNormal Mode = iota
	ModeDeleteSelect
	ModeDownloadSelect
)

func (m Mode) String() string {
	switch m {
	case ModeDeleteSelect:
		return "delete-select"
	case ModeDownloadSelect:
		return "download-select"
	default:
		return "normal"
	}
}

/*
State is the selection-mode state machine for one browser. Selected is
always empty while Mode is ModeNormal, and entering any selection mode
starts from an empty selection.
*/
type State struct {
	Mode     Mode
	Selected map[string]bool
}

func New() *State {
	return &State{
		Mode:     ModeNormal,
		Selected: map[string]bool{},
	}
}

func (s *State) Clone() *State {
	result := &State{
		Mode:     s.Mode,
		Selected: make(map[string]bool, len(s.Selected)),
	}

	for name, selected := range s.Selected {
		if selected {
			result.Selected[name] = true
		}
	}

	return result
}

func (s *State) EnterDeleteMode() {
	s.clear()
	s.Mode = ModeDeleteSelect
}

func (s *State) EnterDownloadMode() {
	s.clear()
	s.Mode = ModeDownloadSelect
}

func (s *State) Cancel() {
	s.clear()
	s.Mode = ModeNormal
}

func (s *State) IsSelecting() bool {
	return s.Mode != ModeNormal
}

func (s *State) Toggle(name string, checked bool) error {
	if !s.IsSelecting() {
		return ErrNotSelecting
	}

	s.ensure()

	if checked {
		s.Selected[name] = true
	} else {
		delete(s.Selected, name)
	}

	return nil
}

/*
ToggleAll selects every name unless all of them are already selected,
in which case it deselects them.
*/
func (s *State) ToggleAll(names []string) error {
	if !s.IsSelecting() {
		return ErrNotSelecting
	}

	s.ensure()

	if s.allSelected(names) {
		s.clear()
		return nil
	}

	for _, name := range names {
		s.Selected[name] = true
	}

	return nil
}

func (s *State) IsSelected(name string) bool {
	return s.Selected[name]
}

func (s *State) Count() int {
	return len(s.Selected)
}

/*
Names returns the selected names sorted, or ordered by the given picture
names when provided.
*/
func (s *State) Names(order ...string) []string {
	result := make([]string, 0, len(s.Selected))

	if len(order) > 0 {
		for _, name := range order {
			if s.Selected[name] {
				result = append(result, name)
			}
		}

		return result
	}

	for name := range s.Selected {
		result = append(result, name)
	}

	sort.Strings(result)
	return result
}

/*
Prune drops selected names that are not in the current picture list.
*/
func (s *State) Prune(existing []string) {
	keep := make(map[string]bool, len(existing))

	for _, name := range existing {
		keep[name] = true
	}

	for name := range s.Selected {
		if !keep[name] {
			delete(s.Selected, name)
		}
	}
}

func (s *State) Toolbar(total int) Toolbar {
	count := s.Count()
	allSelected := total > 0 && count == total

	result := Toolbar{
		Mode:           s.Mode,
		SelectedCount:  count,
		SelectedLabel:  fmt.Sprintf("%d selected", count),
		PrimaryEnabled: count > 0,
		SelectAllLabel: "Select All",
	}

	if allSelected {
		result.SelectAllLabel = "Deselect All"
	}

	switch s.Mode {
	case ModeDeleteSelect:
		result.ShowDeleteSection = true
		result.ShowDownloadModeButton = true

	case ModeDownloadSelect:
		result.ShowDownloadSection = true

	default:
		result.ShowUpload = true
		result.ShowSelectModeButton = true
	}

	return result
}

func (s *State) allSelected(names []string) bool {
	for _, name := range names {
		if !s.Selected[name] {
			return false
		}
	}

	return true
}

func (s *State) clear() {
	s.Selected = map[string]bool{}
}

func (s *State) ensure() {
	if s.Selected == nil {
		s.Selected = map[string]bool{}
	}
}
