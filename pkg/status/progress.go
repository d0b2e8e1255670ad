package status

// Progress is returned as a struct because we may add more to it later.
// It lets wrappers summarize the current status without parsing log output.
type Progress struct {
	CurrentState State  // current state, i.e. CopyRows
	Summary      string // text based representation, i.e. "3/6 tables copyRows reviews"
}
