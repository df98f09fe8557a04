package model

import (
	"testing"
)

const sampleDoc = `
version: 1
firstSubject: intro
init:
  - id: score
    operation: set
    value: 0
subjects:
  - id: intro
    description: Opening scene
    sequence:
      items:
        - media:
            type: video
            duration: 5000
            attributes:
              src: intro.mp4
            overlays:
              - startTime: 1000
                duration: 2000
                leadsTo:
                  - subject: ending
        - media:
            type: image
            duration: 3000
            attributes:
              src: map.png
    leadsTo:
      - subject: ending
    swipe:
      left:
        subject: ending
  - id: ending
    sequence:
      order: random
      items:
        - media:
            type: text
            attributes:
              text: The end.
            questionLists:
              - startTime: 500
                timeLimit: 2000
                questions:
                  - text: Was that fun?
                    answer: yes
                    options: [yes, no]
                    score:
                      - id: score
                        operation: add
                        value: 5
`

func TestParseSampleDocument(t *testing.T) {
	p, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("failed to parse playlist: %v", err)
	}

	if p.FirstSubject != "intro" {
		t.Errorf("expected firstSubject intro, got %s", p.FirstSubject)
	}
	if len(p.Subjects) != 2 {
		t.Fatalf("expected 2 subjects, got %d", len(p.Subjects))
	}
	if p.Subject("intro") == nil || p.Subject("ending") == nil {
		t.Fatalf("expected subjects indexed by id")
	}
	if p.Subject("missing") != nil {
		t.Errorf("expected nil for unknown subject id")
	}

	intro := p.Subject("intro")
	if len(intro.Sequence.Items) != 2 {
		t.Fatalf("expected 2 sequence items, got %d", len(intro.Sequence.Items))
	}
	v := intro.Sequence.Items[0].Media
	if v.Kind != "video" || v.Duration != 5000 {
		t.Errorf("unexpected first media item: %+v", v)
	}
	if src, _ := v.Extra["src"].(string); src != "intro.mp4" {
		t.Errorf("expected opaque attributes preserved, got %v", v.Extra)
	}
	if len(v.Overlays) != 1 || v.Overlays[0].StartTime != 1000 {
		t.Errorf("unexpected overlays: %+v", v.Overlays)
	}

	ending := p.Subject("ending")
	if ending.Sequence.Order != OrderRandom {
		t.Errorf("expected random order, got %q", ending.Sequence.Order)
	}
	ql := ending.Sequence.Items[0].Media.Questions[0]
	if ql.TimeLimit != 2000 || len(ql.Questions) != 1 {
		t.Errorf("unexpected question list: %+v", ql)
	}
	if ql.Questions[0].Answer != "yes" {
		t.Errorf("unexpected answer token: %q", ql.Questions[0].Answer)
	}
}

func TestParseAssignsStableMediaIDs(t *testing.T) {
	p, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("failed to parse playlist: %v", err)
	}

	if len(p.Media) != 3 {
		t.Fatalf("expected 3 media items in flat registry, got %d", len(p.Media))
	}
	for i, m := range p.Media {
		if m.ID != i {
			t.Errorf("expected media %d to have id %d, got %d", i, i, m.ID)
		}
	}
}

func TestParseRejectsWrongVersion(t *testing.T) {
	_, err := Parse([]byte("version: 2\nsubjects: []"))
	if err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func TestParseRejectsDuplicateSubjects(t *testing.T) {
	doc := `
version: 1
subjects:
  - id: a
  - id: a
`
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("expected error for duplicate subject id")
	}
}

func TestParseDefaultsFirstSubject(t *testing.T) {
	doc := `
version: 1
subjects:
  - id: only
`
	p, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if p.FirstSubject != "only" {
		t.Errorf("expected firstSubject to default to first declared subject, got %q", p.FirstSubject)
	}
}

func TestOverlayEndTime(t *testing.T) {
	timed := &Overlay{StartTime: 1000, Duration: 2000}
	if timed.EndTime() != 3000 {
		t.Errorf("expected end time 3000, got %d", timed.EndTime())
	}
	open := &Overlay{StartTime: 1000}
	if open.EndTime() != 0 {
		t.Errorf("expected open-ended overlay end time 0, got %d", open.EndTime())
	}
}

func TestQuestionLimitFallsBackToListDefault(t *testing.T) {
	q := &Question{}
	if q.Limit(4000) != 4000 {
		t.Errorf("expected list default limit")
	}
	q.TimeLimit = 1500
	if q.Limit(4000) != 1500 {
		t.Errorf("expected per-question override to win")
	}
}
