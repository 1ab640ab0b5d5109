package analysis

import (
	"sort"

	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

// DuplicateGroup is a set of reviews whose normalized text is identical.
type DuplicateGroup struct {
	Fingerprint string
	Count       int
	Businesses  int
	Indexes     []int
	Sample      string
}

// GroupDuplicates groups non-blank reviews by fingerprint and returns only the
// groups with more than one member, sorted by (Count DESC, Businesses DESC).
// Returns empty slice for empty input (never nil).
func GroupDuplicates(records []models.ReviewRecord) []DuplicateGroup {
	type groupState struct {
		indexes    []int
		businesses map[string]struct{}
		sample     string
	}

	groups := make(map[string]*groupState)
	var order []string

	for _, rec := range records {
		if IsBlank(rec.Text) {
			continue
		}
		fp := Fingerprint(rec.Text)
		gs, exists := groups[fp]
		if !exists {
			gs = &groupState{
				businesses: make(map[string]struct{}),
				sample:     Truncate(rec.Text, 200),
			}
			groups[fp] = gs
			order = append(order, fp)
		}
		gs.indexes = append(gs.indexes, rec.Index)
		gs.businesses[rec.BusinessName] = struct{}{}
	}

	dups := make([]DuplicateGroup, 0)
	for _, fp := range order {
		gs := groups[fp]
		if len(gs.indexes) < 2 {
			continue
		}
		dups = append(dups, DuplicateGroup{
			Fingerprint: fp,
			Count:       len(gs.indexes),
			Businesses:  len(gs.businesses),
			Indexes:     gs.indexes,
			Sample:      gs.sample,
		})
	}

	sort.SliceStable(dups, func(i, j int) bool {
		if dups[i].Count != dups[j].Count {
			return dups[i].Count > dups[j].Count
		}
		return dups[i].Businesses > dups[j].Businesses
	})

	return dups
}

// Profile summarizes the text side of a record set before classification.
type Profile struct {
	Records          int
	Blank            int
	WithContact      int
	DuplicateGroups  int
	DuplicateRecords int
	MeanWords        float64
}

// ProfileRecords computes a Profile for records.
func ProfileRecords(records []models.ReviewRecord) Profile {
	p := Profile{Records: len(records)}
	words := 0
	for _, rec := range records {
		if IsBlank(rec.Text) {
			p.Blank++
			continue
		}
		if HasContactDetails(rec.Text) {
			p.WithContact++
		}
		words += WordCount(rec.Text)
	}
	if nonBlank := p.Records - p.Blank; nonBlank > 0 {
		p.MeanWords = float64(words) / float64(nonBlank)
	}
	for _, g := range GroupDuplicates(records) {
		p.DuplicateGroups++
		p.DuplicateRecords += g.Count
	}
	return p
}
