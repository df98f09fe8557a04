package playback

import (
	"testing"

	"github.com/mverkaik/stagehand/internal/media"
	"github.com/mverkaik/stagehand/internal/model"
)

const playerDoc = `
version: 1
firstSubject: intro
init:
  - id: score
    operation: set
    value: 0
subjects:
  - id: intro
    sequence:
      items:
        - media:
            type: video
            attributes:
              src: intro.mp4
    leadsTo:
      - subject: finale
      - subject: bonus
        condition: "{{score}} >= 10"
    swipe:
      left:
        subject: finale
  - id: bonus
    score:
      - id: bonusVisits
        operation: add
        value: 1
    sequence:
      items:
        - media:
            type: image
            attributes:
              src: bonus.png
  - id: finale
    sequence:
      items:
        - media:
            type: text
            attributes:
              text: The end.
`

type playerFixture struct {
	p        *Player
	playlist *model.Playlist
	stage    *fakeStage
	clock    *fakeClock
}

func newPlayerFixture(t *testing.T) *playerFixture {
	t.Helper()

	playlist, err := model.Parse([]byte(playerDoc))
	if err != nil {
		t.Fatalf("parse playlist: %v", err)
	}

	stage := newFakeStage()
	clock := newFakeClock()
	p, err := NewPlayer(PlayerConfig{
		Playlist:     playlist,
		Stage:        stage,
		Registry:     media.Builtin(),
		Log:          testLog,
		Clock:        clock,
		TickInterval: -1,
	})
	if err != nil {
		t.Fatalf("new player: %v", err)
	}

	return &playerFixture{p: p, playlist: playlist, stage: stage, clock: clock}
}

// mediaID resolves the id of the first media item of a subject.
func (f *playerFixture) mediaID(t *testing.T, subject string) int {
	t.Helper()
	s := f.playlist.Subject(subject)
	if s == nil || len(s.Sequence.Items) == 0 || s.Sequence.Items[0].Media == nil {
		t.Fatalf("subject %q has no media", subject)
	}
	return s.Sequence.Items[0].Media.ID
}

func TestPlayerStartsAtFirstSubject(t *testing.T) {
	f := newPlayerFixture(t)

	var playing []string
	f.p.Events().Subscribe(TopicSubjectPlaying, func(data interface{}) {
		playing = append(playing, data.(string))
	})

	f.p.Play()

	if !f.p.IsPlaying() {
		t.Fatal("player should be playing")
	}
	if f.p.CurrentSubject() != "intro" {
		t.Errorf("current subject = %q, want intro", f.p.CurrentSubject())
	}
	if len(playing) != 1 || playing[0] != "intro" {
		t.Errorf("subject notifications = %v, want [intro]", playing)
	}
	if f.stage.countCalls("play") == 0 {
		t.Error("stage never received a play directive")
	}
}

func TestPlayerFollowsSubjectBranchToTheEnd(t *testing.T) {
	f := newPlayerFixture(t)

	ended := false
	f.p.Events().Subscribe(TopicPlayerEnded, func(interface{}) { ended = true })

	f.p.Play()

	// intro's media ends; score is 0, so the unconditional branch to
	// finale applies.
	f.p.ReportMediaEnded(f.mediaID(t, "intro"))
	if f.p.CurrentSubject() != "finale" {
		t.Fatalf("current subject = %q, want finale", f.p.CurrentSubject())
	}

	// finale has no branch: the presentation is over.
	f.p.ReportMediaEnded(f.mediaID(t, "finale"))
	if !ended {
		t.Fatal("player ended notification missing")
	}
	if !f.p.IsStopped() {
		t.Error("player should be stopped after ending")
	}
}

func TestPlayerPlayAfterEndedStartsOver(t *testing.T) {
	f := newPlayerFixture(t)

	var playing []string
	f.p.Events().Subscribe(TopicSubjectPlaying, func(data interface{}) {
		playing = append(playing, data.(string))
	})

	f.p.Play()
	f.p.ReportMediaEnded(f.mediaID(t, "intro"))
	f.p.ReportMediaEnded(f.mediaID(t, "finale"))
	if !f.p.IsStopped() {
		t.Fatal("player should be stopped after ending")
	}
	if f.p.CurrentSubject() != "" {
		t.Errorf("current subject after ending = %q, want none", f.p.CurrentSubject())
	}

	// Ending is not the restore path: a fresh Play replays from the
	// first subject, not the last one.
	f.p.Play()
	if f.p.CurrentSubject() != "intro" {
		t.Errorf("subject after replay = %q, want intro", f.p.CurrentSubject())
	}
	want := []string{"intro", "finale", "intro"}
	if len(playing) != len(want) || playing[2] != "intro" {
		t.Errorf("subject notifications = %v, want %v", playing, want)
	}
}

func TestPlayerConditionalBranchBeatsDefault(t *testing.T) {
	f := newPlayerFixture(t)
	f.p.Play()

	// Push the score over the threshold, then end intro's media: the
	// conditional branch to bonus wins over the earlier default.
	f.pushScore(t, 10)

	f.p.ReportMediaEnded(f.mediaID(t, "intro"))
	if f.p.CurrentSubject() != "bonus" {
		t.Errorf("current subject = %q, want bonus", f.p.CurrentSubject())
	}

	if v, _ := f.p.GetVariable("bonusVisits"); v != float64(1) {
		t.Errorf("bonusVisits = %v, want 1 (entry modifier)", v)
	}
}

func (f *playerFixture) pushScore(t *testing.T, n int) {
	t.Helper()
	f.p.mu.Lock()
	f.p.vars.Apply(model.VariableModifier{ID: "score", Operation: model.OpSet, Value: n})
	f.p.mu.Unlock()
}

func TestPlayerGoToAndBack(t *testing.T) {
	f := newPlayerFixture(t)
	f.p.Play()

	f.p.GoTo("finale")
	if f.p.CurrentSubject() != "finale" {
		t.Fatalf("current subject = %q, want finale", f.p.CurrentSubject())
	}

	f.p.GoTo(model.BackTarget)
	if f.p.CurrentSubject() != "intro" {
		t.Errorf("current subject after back = %q, want intro", f.p.CurrentSubject())
	}

	// No more history: back is a warned no-op.
	f.p.GoTo(model.BackTarget)
	if f.p.CurrentSubject() != "intro" {
		t.Errorf("current subject = %q, want still intro", f.p.CurrentSubject())
	}
}

func TestPlayerGoToUnknownSubjectIsNoOp(t *testing.T) {
	f := newPlayerFixture(t)
	f.p.Play()

	f.p.GoTo("nope")
	if f.p.CurrentSubject() != "intro" {
		t.Errorf("current subject = %q, want intro", f.p.CurrentSubject())
	}
}

func TestPlayerSwipeNavigates(t *testing.T) {
	f := newPlayerFixture(t)
	f.p.Play()

	var swiped string
	f.p.Events().Subscribe(TopicSwipe, func(data interface{}) { swiped = data.(string) })

	f.p.Swipe("left")
	if f.p.CurrentSubject() != "finale" {
		t.Errorf("current subject = %q, want finale", f.p.CurrentSubject())
	}
	if swiped != "left" {
		t.Errorf("swipe notification = %q, want left", swiped)
	}

	// finale has no swipe map entry.
	f.p.Swipe("up")
	if f.p.CurrentSubject() != "finale" {
		t.Error("unmapped swipe should do nothing")
	}
}

func TestPlayerStopIsAFullReset(t *testing.T) {
	f := newPlayerFixture(t)
	f.p.Play()
	f.p.GoTo("bonus")

	if v, _ := f.p.GetVariable("bonusVisits"); v != float64(1) {
		t.Fatalf("bonusVisits = %v, want 1", v)
	}

	f.p.Stop()

	if !f.p.IsStopped() {
		t.Fatal("player should be stopped")
	}
	if f.p.CurrentSubject() != "" {
		t.Error("stop should clear the current subject")
	}
	if _, ok := f.p.GetVariable("bonusVisits"); ok {
		t.Error("stop should re-initialize variables")
	}
	if v, _ := f.p.GetVariable("score"); v != 0 {
		t.Errorf("score = %v, want initial 0", v)
	}

	// A fresh play starts over from the first subject.
	f.p.Play()
	if f.p.CurrentSubject() != "intro" {
		t.Errorf("subject after restart = %q, want intro", f.p.CurrentSubject())
	}
}

func TestPlayerPauseResume(t *testing.T) {
	f := newPlayerFixture(t)
	f.p.Play()

	f.p.Pause()
	if !f.p.IsPaused() {
		t.Fatal("player should be paused")
	}

	// Redundant pause is a no-op.
	f.p.Pause()

	f.p.Play()
	if !f.p.IsPlaying() {
		t.Fatal("player should be playing after resume")
	}
}

func TestPlayerRestoreResumesAtJournaledSubject(t *testing.T) {
	f := newPlayerFixture(t)

	f.p.Restore(&RestoredSession{
		Active:    true,
		SubjectID: "finale",
		Variables: map[string]interface{}{"score": float64(42)},
	})
	f.p.Play()

	if f.p.CurrentSubject() != "finale" {
		t.Errorf("current subject = %q, want restored finale", f.p.CurrentSubject())
	}
	if v, _ := f.p.GetVariable("score"); v != float64(42) {
		t.Errorf("score = %v, want restored 42", v)
	}
}

func TestPlayerRestoreUnknownSubjectIsIgnored(t *testing.T) {
	f := newPlayerFixture(t)

	f.p.Restore(&RestoredSession{Active: true, SubjectID: "gone"})
	f.p.Play()

	if f.p.CurrentSubject() != "intro" {
		t.Errorf("current subject = %q, want intro", f.p.CurrentSubject())
	}
}
