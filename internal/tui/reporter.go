package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"pyforge/internal/runtime"
)

// InstallReporter forwards progress from a running tool operation into row
// updates for one version's row. Messages land in the DETAIL column and
// status transitions in the STATUS column, so the table layout stays with
// the caller while the tool only reports what it is doing.
type InstallReporter struct {
	send func(tea.Msg)
	key  string
}

var _ runtime.Reporter = (*InstallReporter)(nil)

// NewInstallReporter constructs a reporter bound to the row identified by key.
func NewInstallReporter(send func(tea.Msg), key string) *InstallReporter {
	return &InstallReporter{send: send, key: key}
}

// SetMessage implements runtime.Reporter.
func (r *InstallReporter) SetMessage(message string) {
	r.send(RowUpdateMsg{
		Key:    r.key,
		Fields: map[string]string{"DETAIL": message},
	})
}

// Warn implements runtime.Reporter. Warnings go beneath the table instead of
// into the row, so guidance is not lost to the next detail update.
func (r *InstallReporter) Warn(message string) {
	r.send(NoteMsg{Text: message})
}

// SetStatus updates the STATUS cell for the row.
func (r *InstallReporter) SetStatus(status string) {
	r.send(RowUpdateMsg{
		Key:    r.key,
		Fields: map[string]string{"STATUS": status},
	})
}

// Fail marks the row failed and surfaces the error in the DETAIL column.
func (r *InstallReporter) Fail(err error) {
	r.send(RowUpdateMsg{
		Key:    r.key,
		Fields: map[string]string{"STATUS": "failed", "DETAIL": err.Error()},
	})
}
