package ui

import "firstboot/internal/progress"

type installUpdateMsg struct {
	U progress.Update
}

type installLogMsg struct {
	L progress.Log
}

type installResultMsg struct {
	R progress.Result
}

// installDoneMsg is sent once the install function returns.
type installDoneMsg struct {
	Err error
}

type allDoneMsg struct{}
