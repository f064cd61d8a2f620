package search

import (
	"sort"

	"autofilter/internal/models"
)

// AllLabel is the control that is not filtered by quality.
const AllLabel = "All"

// Grouped is a search result partitioned by quality.
type Grouped struct {
	// Qualities follow models.QualityOrder; absent labels are dropped.
	Qualities []models.Quality
	Buckets   map[models.Quality][]models.IndexedFile
}

// Group partitions files by quality, keeping input order inside each bucket.
func Group(files []models.IndexedFile) Grouped {
	g := Grouped{Buckets: make(map[models.Quality][]models.IndexedFile)}
	for _, f := range files {
		q := f.Quality
		if q == "" {
			q = models.QualityUnknown
		}
		if _, ok := g.Buckets[q]; !ok {
			g.Qualities = append(g.Qualities, q)
		}
		g.Buckets[q] = append(g.Buckets[q], f)
	}
	sort.SliceStable(g.Qualities, func(i, j int) bool {
		ri, rj := g.Qualities[i].Rank(), g.Qualities[j].Rank()
		if ri != rj {
			return ri < rj
		}
		return g.Qualities[i] < g.Qualities[j]
	})
	return g
}

// Flatten concatenates the buckets in quality order.
func (g Grouped) Flatten() []models.IndexedFile {
	out := make([]models.IndexedFile, 0, g.Count())
	for _, q := range g.Qualities {
		out = append(out, g.Buckets[q]...)
	}
	return out
}

func (g Grouped) Count() int {
	n := 0
	for _, b := range g.Buckets {
		n += len(b)
	}
	return n
}

// Controls are the labels of the selectable buttons: one per quality present, then All.
func (g Grouped) Controls() []string {
	labels := make([]string, 0, len(g.Qualities)+1)
	for _, q := range g.Qualities {
		labels = append(labels, string(q))
	}
	return append(labels, AllLabel)
}
