package assembly

import "testing"

func TestHashSectionsDeterministic(t *testing.T) {
	build := func() []Section {
		return []Section{
			{Kind: SectionCore, Text: "林远与苏芸并肩而行。"},
			{Kind: SectionCharacter, Text: "林远：北境旧部。"},
			{Kind: SectionPlot, Text: ""},
			{Kind: SectionWorld, Text: "北境苦寒。"},
			{Kind: SectionHistorical, Text: ""},
		}
	}

	first := HashSections(build())
	second := HashSections(build())
	if first != second {
		t.Fatalf("identical sections hashed differently: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(first))
	}
}

func TestHashSectionsContentSensitive(t *testing.T) {
	base := []Section{{Kind: SectionCore, Text: "甲"}, {Kind: SectionPlot, Text: "乙"}}
	changed := []Section{{Kind: SectionCore, Text: "甲"}, {Kind: SectionPlot, Text: "丙"}}

	if HashSections(base) == HashSections(changed) {
		t.Error("different section text must hash differently")
	}
}

func TestHashSectionsBoundarySensitive(t *testing.T) {
	// 长度前缀保证拼接歧义不会撞出同一摘要
	a := []Section{{Kind: SectionCore, Text: "ab"}, {Kind: SectionPlot, Text: "c"}}
	b := []Section{{Kind: SectionCore, Text: "a"}, {Kind: SectionPlot, Text: "bc"}}

	if HashSections(a) == HashSections(b) {
		t.Error("section boundary shift must change the hash")
	}
}

func TestShortHash(t *testing.T) {
	a := ShortHash("4000:0.5000:0.2000:0.1500:0.1000:0.0500:true:true:1")
	b := ShortHash("4000:0.5000:0.2000:0.1500:0.1000:0.0500:true:true:1")
	c := ShortHash("2000:0.5000:0.2000:0.1500:0.1000:0.0500:true:true:1")

	if a != b {
		t.Error("same input must produce the same short hash")
	}
	if a == c {
		t.Error("different input must produce a different short hash")
	}
	if len(a) != 16 {
		t.Errorf("short hash length = %d, want 16", len(a))
	}
}
