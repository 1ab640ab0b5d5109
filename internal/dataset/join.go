package dataset

// JoinMode selects which left rows survive a join.
type JoinMode int

const (
	// JoinInner keeps only left rows with at least one match.
	JoinInner JoinMode = iota
	// JoinLeft keeps every left row; unmatched rows get empty right cells.
	JoinLeft
)

// Join combines left and right on leftKey = rightKey. Every matching pair
// produces a row, in left order then right order. Non-key columns present on
// both sides are suffixed _x (left) and _y (right). When the key names are
// equal the key appears once.
func Join(left, right *Table, leftKey, rightKey string, mode JoinMode) *Table {
	rightCols := make(map[string]bool, len(right.Header))
	for _, c := range right.Header {
		rightCols[c] = true
	}
	leftCols := make(map[string]bool, len(left.Header))
	for _, c := range left.Header {
		leftCols[c] = true
	}
	sameKey := leftKey == rightKey

	leftName := func(c string) string {
		if rightCols[c] && !(sameKey && c == leftKey) {
			return c + "_x"
		}
		return c
	}
	rightName := func(c string) string {
		if leftCols[c] {
			return c + "_y"
		}
		return c
	}

	out := NewTable()
	for _, c := range left.Header {
		out.Header = append(out.Header, leftName(c))
	}
	for _, c := range right.Header {
		if sameKey && c == rightKey {
			continue
		}
		out.Header = append(out.Header, rightName(c))
	}

	index := make(map[string][]map[string]string)
	for _, row := range right.Rows {
		k := row[rightKey]
		index[k] = append(index[k], row)
	}

	for _, lrow := range left.Rows {
		matches := index[lrow[leftKey]]
		if len(matches) == 0 {
			if mode == JoinLeft {
				out.Append(joinRow(lrow, nil, left.Header, right.Header, leftName, rightName, sameKey, rightKey))
			}
			continue
		}
		for _, rrow := range matches {
			out.Append(joinRow(lrow, rrow, left.Header, right.Header, leftName, rightName, sameKey, rightKey))
		}
	}
	return out
}

func joinRow(lrow, rrow map[string]string, lh, rh []string, leftName, rightName func(string) string, sameKey bool, rightKey string) map[string]string {
	row := make(map[string]string, len(lh)+len(rh))
	for _, c := range lh {
		row[leftName(c)] = lrow[c]
	}
	for _, c := range rh {
		if sameKey && c == rightKey {
			continue
		}
		if rrow != nil {
			row[rightName(c)] = rrow[c]
		} else {
			row[rightName(c)] = ""
		}
	}
	return row
}

// MergeWithPlaces left-joins a labelled result table with place metadata,
// matching leftKey (usually business_name) against rightKey (usually name).
func MergeWithPlaces(labelled *Table, places []Place, leftKey, rightKey string) *Table {
	return Join(labelled, PlacesTable(places), leftKey, rightKey, JoinLeft)
}

// MissingCounts counts rows lacking optional metadata.
type MissingCounts struct {
	Rows               int
	MissingDescription int
	MissingCategory    int
}

// MissingReport counts missing description and category cells in t. A column
// absent from the header counts as missing on every row.
func MissingReport(t *Table, descriptionCol, categoryCol string) MissingCounts {
	rep := MissingCounts{Rows: t.Len()}
	for _, row := range t.Rows {
		if isMissing(row[descriptionCol]) {
			rep.MissingDescription++
		}
		if isMissing(row[categoryCol]) {
			rep.MissingCategory++
		}
	}
	return rep
}
