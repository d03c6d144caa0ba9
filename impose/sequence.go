package impose

// PageRef is a 1-based source page number. Blank (0) marks an empty slot.
type PageRef int

const Blank PageRef = 0

func (p PageRef) IsBlank() bool {
	return p <= 0
}

// SheetPlan is what one physical sheet carries, slot by slot.
// Back is nil for single-sided sheets.
type SheetPlan struct {
	Index int // 0-based
	Front []PageRef
	Back  []PageRef
}

// Pages lists the distinct non-blank pages of the sheet in first-use order
func (p SheetPlan) Pages() []PageRef {
	seen := make(map[PageRef]struct{}, len(p.Front)+len(p.Back))
	var pages []PageRef
	for _, face := range [][]PageRef{p.Front, p.Back} {
		for _, ref := range face {
			if ref.IsBlank() {
				continue
			}
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			pages = append(pages, ref)
		}
	}
	return pages
}

// pageAt converts a 0-based index into a PageRef, blank past the last page
func pageAt(idx, numPages int) PageRef {
	if idx < 0 || idx >= numPages {
		return Blank
	}
	return PageRef(idx + 1)
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// paddedPageCount rounds up to the next multiple of 4
func paddedPageCount(numPages int) int {
	return ceilDiv(numPages, 4) * 4
}

// SheetCount is the number of physical sheets a job of numPages needs
func SheetCount(numPages int, s Settings) int {
	if numPages <= 0 {
		return 0
	}
	switch s.Scheme {
	case Stack, CollateCut:
		return ceilDiv(numPages, s.SlotsPerSheet()*s.Faces())
	case Repeat:
		return ceilDiv(numPages, s.Faces())
	case Booklet:
		return ceilDiv(numPages, 4)
	}
	return 0
}

// Sequence returns the pages on the front and back of sheet sheetIndex.
// Every face has exactly SlotsPerSheet entries, row-major from the bottom row.
func Sequence(sheetIndex, numPages int, s Settings) (SheetPlan, error) {
	if sheetIndex < 0 {
		return SheetPlan{}, configErrorf("negative sheet index %d", sheetIndex)
	}
	var plan SheetPlan
	switch s.Scheme {
	case Stack:
		plan = sequenceStack(sheetIndex, numPages, s)
	case Repeat:
		plan = sequenceRepeat(sheetIndex, numPages, s)
	case Booklet:
		plan = sequenceBooklet(sheetIndex, numPages, s)
	case CollateCut:
		plan = sequenceCollateCut(sheetIndex, numPages, s)
	default:
		return SheetPlan{}, configErrorf("unknown imposition type %d", int(s.Scheme))
	}
	plan.Index = sheetIndex
	if s.Duplex && (s.Scheme == Stack || s.Scheme == CollateCut) {
		cols, _ := s.Grid()
		if cols > 1 {
			workAndTurn(plan.Back, cols)
		}
	}
	return plan, nil
}

func newFaces(s Settings) (front, back []PageRef) {
	slots := s.SlotsPerSheet()
	front = make([]PageRef, slots)
	if s.HasBack() {
		back = make([]PageRef, slots)
	}
	return front, back
}

// stack: consecutive blocks; duplex interleaves front and back page by page
func sequenceStack(i, numPages int, s Settings) SheetPlan {
	front, back := newFaces(s)
	slots, faces := len(front), s.Faces()
	base := i * slots * faces
	for k := range slots {
		idx := base + k*faces
		front[k] = pageAt(idx, numPages)
		if back != nil {
			back[k] = pageAt(idx+1, numPages)
		}
	}
	return SheetPlan{Front: front, Back: back}
}

// repeat: one master page fills the face
func sequenceRepeat(i, numPages int, s Settings) SheetPlan {
	front, back := newFaces(s)
	master := i * s.Faces()
	for k := range front {
		front[k] = pageAt(master, numPages)
		if back != nil {
			back[k] = pageAt(master+1, numPages)
		}
	}
	return SheetPlan{Front: front, Back: back}
}

// booklet: two pages per face, padded to whole 4-page sheets
func sequenceBooklet(i, numPages int, s Settings) SheetPlan {
	P := paddedPageCount(numPages)
	ref := func(n int) PageRef {
		// 1-based page number past the real count is padding
		if n < 1 || n > numPages || n > P {
			return Blank
		}
		return PageRef(n)
	}
	if s.BookletBinding == PerfectBound {
		return SheetPlan{
			Front: []PageRef{ref(4*i + 4), ref(4*i + 1)},
			Back:  []PageRef{ref(4*i + 2), ref(4*i + 3)},
		}
	}
	return SheetPlan{
		Front: []PageRef{ref(P - 2*i), ref(2*i + 1)},
		Back:  []PageRef{ref(2*i + 2), ref(P - 2*i - 1)},
	}
}

// collateCut: slot k holds the k-th cut stack, each stack depth pages long
func sequenceCollateCut(i, numPages int, s Settings) SheetPlan {
	front, back := newFaces(s)
	faces := s.Faces()
	depth := SheetCount(numPages, s) * faces
	for k := range front {
		idx := k*depth + i*faces
		front[k] = pageAt(idx, numPages)
		if back != nil {
			back[k] = pageAt(idx+1, numPages)
		}
	}
	return SheetPlan{Front: front, Back: back}
}

// workAndTurn mirrors every row of a face in place
func workAndTurn(face []PageRef, cols int) {
	for start := 0; start+cols <= len(face); start += cols {
		row := face[start : start+cols]
		for l, r := 0, len(row)-1; l < r; l, r = l+1, r-1 {
			row[l], row[r] = row[r], row[l]
		}
	}
}
