package pagesize

// Run is a maximal sequence of consecutive pages sharing one size class.
type Run struct {
	Class     SizeClass
	StartPage int
	Count     int
	Pages     []int
}

// Tracker groups classified pages into runs. Pages must be added in order.
type Tracker struct {
	runs    []Run
	current *Run
}

// Add records page as belonging to class, closing the open run on a change.
func (t *Tracker) Add(page int, class SizeClass) {
	if t.current != nil && t.current.Class == class {
		t.current.Count++
		t.current.Pages = append(t.current.Pages, page)
		return
	}
	t.flush()
	t.current = &Run{Class: class, StartPage: page, Count: 1, Pages: []int{page}}
}

func (t *Tracker) flush() {
	if t.current != nil {
		t.runs = append(t.runs, *t.current)
		t.current = nil
	}
}

// Close ends the open run and returns all runs in page order.
func (t *Tracker) Close() []Run {
	t.flush()
	return t.runs
}

// TrackRuns is a convenience over Tracker for a complete class sequence,
// where classes[i] is the class of page i+1.
func TrackRuns(classes []SizeClass) []Run {
	var t Tracker
	for i, c := range classes {
		t.Add(i+1, c)
	}
	return t.Close()
}
