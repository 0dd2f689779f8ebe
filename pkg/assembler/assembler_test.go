package assembler

import (
	"bytes"
	"math"
	"reflect"
	"testing"

	"github.com/I0633852860/ultimate-recovery-temp/models"
)

func TestJaccard(t *testing.T) {
	s := models.NewLinkSet("a", "b", "c")
	tests := []struct {
		name string
		a, b models.LinkSet
		want float64
	}{
		{name: "empty left", a: models.NewLinkSet(), b: s, want: 0},
		{name: "empty right", a: s, b: nil, want: 0},
		{name: "both empty", a: nil, b: nil, want: 0},
		{name: "identical", a: s, b: s, want: 1},
		{name: "half", a: models.NewLinkSet("a", "b"), b: models.NewLinkSet("b", "c"), want: 1.0 / 3.0},
		{name: "disjoint", a: models.NewLinkSet("a"), b: models.NewLinkSet("z"), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Jaccard(tt.a, tt.b); got != tt.want {
				t.Errorf("Jaccard() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGroupBySimilarity(t *testing.T) {
	mk := func(offset uint64, links ...string) models.Fragment {
		f := frag(offset, 10, models.FileTypeUnknown)
		f.Links = models.NewLinkSet(links...)
		return f
	}
	frags := []models.Fragment{
		mk(0, "a", "b"),
		mk(10, "x"),
		mk(20, "b", "c"),
		mk(30),
		mk(40, "a", "b", "c", "d", "e", "f", "g"),
	}

	groups := GroupBySimilarity(frags, 0.3)

	var got [][]uint64
	for _, g := range groups {
		got = append(got, offsets(g))
	}
	want := [][]uint64{{0, 20}, {10}, {30}, {40}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GroupBySimilarity() = %v, want %v", got, want)
	}
}

func TestDomainOf(t *testing.T) {
	tests := map[string]string{
		"dQw4w9WgXcQ":                             DomainYouTube,
		"https://youtube.com/watch?v=dQw4w9WgXcQ": DomainYouTube,
		"youtu.be/dQw4w9WgXcQ":                    DomainYouTube,
		"https://www.tiktok.com/@u/video/1":       DomainTikTok,
		"instagram.com/p/abc":                     DomainInstagram,
		"https://fb.watch/xyz":                    DomainFacebook,
		"example.org/page":                        DomainOther,
	}
	for in, want := range tests {
		if got := DomainOf(in); got != want {
			t.Errorf("DomainOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDominantDomain(t *testing.T) {
	mk := func(links ...string) models.Fragment {
		f := frag(0, 1, "")
		f.Links = models.NewLinkSet(links...)
		return f
	}

	if got := DominantDomain([]models.Fragment{mk()}); got != "" {
		t.Errorf("DominantDomain(no links) = %q, want empty", got)
	}
	group := []models.Fragment{
		mk("instagram.com/p/1"),
		mk("aaaaaaaaaaa", "bbbbbbbbbbb"),
	}
	if got := DominantDomain(group); got != DomainYouTube {
		t.Errorf("DominantDomain() = %q, want youtube", got)
	}
	tie := []models.Fragment{mk("tiktok.com/1"), mk("aaaaaaaaaaa")}
	if got := DominantDomain(tie); got != DomainTikTok {
		t.Errorf("DominantDomain(tie) = %q, want first seen tiktok", got)
	}
}

func TestAssembleGroup_TwoFragmentJSON(t *testing.T) {
	f1 := NewFragment(models.FragmentRecord{Offset: 1000, Data: []byte(`{"title": "Test", "links": [`)})
	f2 := NewFragment(models.FragmentRecord{Offset: 2000, Data: []byte(`"https://youtube.com/watch?v=dQw4w9WgXcQ"]}`)})
	a := New(nil, Options{})

	for _, smart := range []bool{false, true} {
		files := a.AssembleGroup([]models.Fragment{f2, f1}, smart)
		if len(files) != 1 {
			t.Fatalf("AssembleGroup(smart=%v) returned %d files, want 1", smart, len(files))
		}
		got := files[0]
		if !got.IsValid || got.Confidence <= 70 {
			t.Errorf("AssembleGroup(smart=%v) = valid %v, confidence %v; want valid, > 70", smart, got.IsValid, got.Confidence)
		}
		if got.FileType != models.FileTypeJSON {
			t.Errorf("FileType = %q, want json", got.FileType)
		}
		if got.Offset() != 1000 || len(got.Fragments) != 2 {
			t.Errorf("fragments = %v, want [1000 2000]", offsets(got.Fragments))
		}
		if !reflect.DeepEqual(got.Links, []string{"dQw4w9WgXcQ"}) {
			t.Errorf("Links = %v, want [dQw4w9WgXcQ]", got.Links)
		}
	}
}

func TestAssembleGroup_RejectsAtThreshold(t *testing.T) {
	// Truncated JSON with one link scores 40, and adjacent fragments keep it at exactly 0.4.
	f1 := NewFragment(models.FragmentRecord{Offset: 0, Data: []byte(`{"a": "x", "b": `)})
	f2 := NewFragment(models.FragmentRecord{Offset: uint64(f1.Size), Data: []byte(`"youtu.be/dQw4w9WgXcQ", `)})
	a := New(nil, Options{})

	if files := a.AssembleGroup([]models.Fragment{f1, f2}, false); len(files) != 0 {
		t.Errorf("AssembleGroup() returned %d files, want 0", len(files))
	}
}

func TestAssembleGroup_InvalidContent(t *testing.T) {
	a := New(nil, Options{})
	f := NewFragment(models.FragmentRecord{Offset: 0, Data: []byte("nothing to see")})
	if files := a.AssembleGroup([]models.Fragment{f}, true); len(files) != 0 {
		t.Errorf("AssembleGroup() returned %d files, want 0", len(files))
	}
	if files := a.AssembleGroup(nil, true); files != nil {
		t.Errorf("AssembleGroup(nil) = %v, want nil", files)
	}
}

// interleavedRecords lays out a JSON file at 0, 1024, 2048 and an HTML file at 512, 1536.
func interleavedRecords() []models.FragmentRecord {
	return []models.FragmentRecord{
		{Offset: 0, FileType: models.FileTypeJSON, Data: []byte(`{"title": "Alpha course", "a": "youtu.be/aaaaaaaaaaa",`)},
		{Offset: 512, FileType: models.FileTypeHTML, Data: []byte(`<html><title>Webinar</title><body>youtu.be/ddddddddddd`)},
		{Offset: 1024, FileType: models.FileTypeJSON, Data: []byte(` "b": "youtu.be/bbbbbbbbbbb",`)},
		{Offset: 1536, FileType: models.FileTypeHTML, Data: []byte(` youtu.be/eeeeeeeeeee</body></html>`)},
		{Offset: 2048, FileType: models.FileTypeJSON, Data: []byte(` "c": "youtu.be/ccccccccccc"}`)},
	}
}

func checkInterleaved(t *testing.T, files []models.AssembledFile) {
	t.Helper()
	if len(files) != 2 {
		t.Fatalf("ProcessPool() returned %d files, want 2", len(files))
	}

	if got := offsets(files[0].Fragments); !reflect.DeepEqual(got, []uint64{0, 1024, 2048}) {
		t.Errorf("files[0] offsets = %v, want [0 1024 2048]", got)
	}
	if files[0].FileType != models.FileTypeJSON {
		t.Errorf("files[0].FileType = %q, want json", files[0].FileType)
	}
	if files[0].SuggestedName != "КУРС_Alpha course.json" {
		t.Errorf("files[0].SuggestedName = %q", files[0].SuggestedName)
	}

	if got := offsets(files[1].Fragments); !reflect.DeepEqual(got, []uint64{512, 1536}) {
		t.Errorf("files[1] offsets = %v, want [512 1536]", got)
	}
	if files[1].FileType != models.FileTypeHTML {
		t.Errorf("files[1].FileType = %q, want html", files[1].FileType)
	}
	if files[1].SuggestedName != "ВЕБИНАР_Webinar.html" {
		t.Errorf("files[1].SuggestedName = %q", files[1].SuggestedName)
	}
}

func TestProcessPool_Interleaved(t *testing.T) {
	for _, workers := range []int{1, 4} {
		a := New(nil, Options{Workers: workers})
		checkInterleaved(t, a.ProcessPool(interleavedRecords()))
	}
}

func TestProcessPool_StreamClustererForLargePools(t *testing.T) {
	a := New(nil, Options{
		LargePoolSize: 2,
		NewClusterer:  func() FineClusterer { return NewStreamClusterer(DefaultMaxGap) },
	})

	files := a.ProcessPool(interleavedRecords())

	// Without type hints the stream clusterer cannot split the pool by type, but every
	// record still ends up in some candidate and nothing is lost or duplicated.
	seen := make(map[uint64]bool)
	for _, f := range files {
		for _, fr := range f.Fragments {
			if seen[fr.Offset] {
				t.Errorf("fragment %d assembled twice", fr.Offset)
			}
			seen[fr.Offset] = true
		}
	}
}

func TestProcessPool_Empty(t *testing.T) {
	a := New(nil, Options{})
	if got := a.ProcessPool(nil); got != nil {
		t.Errorf("ProcessPool(nil) = %v, want nil", got)
	}
}

func TestProcessPool_LinklessGroupAssembledStrictly(t *testing.T) {
	a := New(nil, Options{})
	files := a.ProcessPool([]models.FragmentRecord{{Offset: 4096, Data: []byte(`{"k": 1}`)}})
	if len(files) != 1 {
		t.Fatalf("ProcessPool() returned %d files, want 1", len(files))
	}
	if files[0].Confidence != 100 {
		t.Errorf("Confidence = %v, want 100", files[0].Confidence)
	}
}

type panicClusterer struct{}

func (panicClusterer) Add(uint64, []byte, []string) {}
func (panicClusterer) Cluster() [][]int { panic("boom") }

func TestProcessPool_IsolatesFailingPool(t *testing.T) {
	a := New(nil, Options{
		Workers:       2,
		LargePoolSize: 2,
		NewClusterer:  func() FineClusterer { return panicClusterer{} },
	})
	records := []models.FragmentRecord{
		{Offset: 0, Data: []byte("youtu.be/aaaaaaaaaaa")},
		{Offset: 100, Data: []byte("youtu.be/bbbbbbbbbbb")},
		{Offset: 8192, Data: []byte(`{"k": 1}`)},
	}

	files := a.ProcessPool(records)

	if len(files) != 1 || files[0].Offset() != 8192 {
		t.Fatalf("ProcessPool() = %d files, want only the link-less JSON at 8192", len(files))
	}
}

type fixedClusterer [][]int

func (fixedClusterer) Add(uint64, []byte, []string) {}
func (c fixedClusterer) Cluster() [][]int { return c }

func TestProcessPool_FineClusterRepeatedIndices(t *testing.T) {
	tests := []struct {
		name   string
		groups [][]int
	}{
		{"within group", [][]int{{0, 0}}},
		{"across groups", [][]int{{0}, {0}}},
		{"both", [][]int{{0, 0}, {0}, {-1, 3}}},
	}
	records := []models.FragmentRecord{
		{Offset: 0, FileType: models.FileTypeJSON, Data: []byte(`{"title": "Alpha course", "a": "youtu.be/aaaaaaaaaaa"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := tt.groups
			a := New(nil, Options{
				LargePoolSize: 1,
				NewClusterer:  func() FineClusterer { return fixedClusterer(groups) },
			})

			files := a.ProcessPool(records)

			if len(files) != 1 {
				t.Fatalf("ProcessPool() returned %d files, want 1", len(files))
			}
			if got := offsets(files[0].Fragments); !reflect.DeepEqual(got, []uint64{0}) {
				t.Errorf("fragments = %v, want [0]", got)
			}
		})
	}
}

func TestProcessPool_IsolatesFailingSequence(t *testing.T) {
	orig := reconstruct
	t.Cleanup(func() { reconstruct = orig })
	reconstruct = func(data []byte) models.ReconstructedFile {
		if bytes.Contains(data, []byte("Webinar")) {
			panic("boom")
		}
		return orig(data)
	}

	a := New(nil, Options{})
	files := a.ProcessPool(interleavedRecords())

	if len(files) != 1 {
		t.Fatalf("ProcessPool() returned %d files, want 1", len(files))
	}
	if got := offsets(files[0].Fragments); !reflect.DeepEqual(got, []uint64{0, 1024, 2048}) {
		t.Errorf("fragments = %v, want [0 1024 2048]", got)
	}
}

func TestDedupeByOffset_LaterWins(t *testing.T) {
	records := []models.FragmentRecord{
		{Offset: 0, Data: []byte("old")},
		{Offset: 10, Data: []byte("other")},
		{Offset: 0, Data: []byte("new")},
	}

	got := dedupeByOffset(records)

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Offset != 0 || string(got[0].Content) != "new" {
		t.Errorf("got[0] = %d %q, want 0 new", got[0].Offset, got[0].Content)
	}
	if got[0].FileType != models.FileTypeUnknown {
		t.Errorf("FileType = %q, want unknown", got[0].FileType)
	}
}

func TestAnalyzeCandidates(t *testing.T) {
	frags := []models.Fragment{
		frag(1000, 100, ""),
		frag(5000, 100, ""),
		frag(20000, 100, ""),
	}
	candidates := []models.MetadataCandidate{
		{Offset: 0, Size: 10000, Filename: "video.json"},
		{Offset: 50000, Size: 100},
		{Offset: 20100, Size: 10},
	}

	got := AnalyzeCandidates(candidates, frags)

	if got.PotentialMatches != 1 {
		t.Fatalf("PotentialMatches = %d, want 1", got.PotentialMatches)
	}
	if n := len(got.FragmentedFiles[0].LinkedFragments); n != 2 {
		t.Errorf("linked fragments = %d, want 2", n)
	}
	if got.FragmentedFiles[0].Candidate.Filename != "video.json" {
		t.Errorf("candidate = %+v", got.FragmentedFiles[0].Candidate)
	}
	if got.ConfidenceScore != 80 {
		t.Errorf("ConfidenceScore = %v, want 80", got.ConfidenceScore)
	}
}

func TestAnalyzeCandidates_NoOverlap(t *testing.T) {
	got := AnalyzeCandidates([]models.MetadataCandidate{{Offset: 0, Size: 10}}, []models.Fragment{frag(100, 10, "")})
	if got.PotentialMatches != 0 || got.ConfidenceScore != 0 {
		t.Errorf("AnalyzeCandidates() = %+v, want zero", got)
	}
	if got := AnalyzeCandidates(nil, nil); got.PotentialMatches != 0 {
		t.Errorf("AnalyzeCandidates(nil) = %+v, want zero", got)
	}
}

func TestAnalyzeCandidates_NearTopOfRange(t *testing.T) {
	frags := []models.Fragment{frag(math.MaxUint64-1000, 100, "")}
	candidates := []models.MetadataCandidate{{Offset: math.MaxUint64 - 2000, Size: 5000, Filename: "tail.json"}}

	got := AnalyzeCandidates(candidates, frags)

	if got.PotentialMatches != 1 {
		t.Errorf("PotentialMatches = %d, want 1", got.PotentialMatches)
	}
}
